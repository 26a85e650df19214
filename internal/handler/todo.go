package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/middleware"
	"github.com/iliyamo/todo-app/internal/service"
)

// TodoHandler serves the todo endpoints.  Every route runs behind Auth, so
// the owner is always the authenticated user.
type TodoHandler struct {
	Todos *service.TodoService
}

func NewTodoHandler(t *service.TodoService) *TodoHandler {
	return &TodoHandler{Todos: t}
}

type addTodoReq struct {
	Title string `json:"title" form:"title" validate:"max=255"`
}

func (h *TodoHandler) AddTodo(c echo.Context) error {
	var req addTodoReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	todo, err := h.Todos.Add(ctx, middleware.UserID(c), req.Title)
	if err != nil {
		return err
	}
	return ok(c, "Todo added successfully", todo)
}

func (h *TodoHandler) GetUserTodos(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	todos, err := h.Todos.List(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}
	return ok(c, "Todos found successfully", todos)
}

func (h *TodoHandler) ToggleComplete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	todo, err := h.Todos.Toggle(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "Todo is complete toggled successfully", todo)
}

func (h *TodoHandler) DeleteTodo(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	todo, err := h.Todos.Delete(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "Todo deleted successfully", todo)
}
