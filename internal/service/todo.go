package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/live"
	"github.com/iliyamo/todo-app/internal/model"
	"github.com/iliyamo/todo-app/internal/repository"
)

const maxTitleLen = 255

// TodoNotifier is told about every successful todo mutation.
type TodoNotifier interface {
	TodoChanged(userID, kind string, t model.Todo)
}

type noopNotifier struct{}

func (noopNotifier) TodoChanged(string, string, model.Todo) {}

// TodoService manages a user's todo list.  Every operation is scoped to the
// owner; another user's todo looks exactly like a missing one.
type TodoService struct {
	todos           *repository.TodoRepo
	notify          TodoNotifier
	emptyAsNotFound bool
}

// NewTodoService wires the repository.  A nil notifier disables live events.
func NewTodoService(todos *repository.TodoRepo, notify TodoNotifier, emptyAsNotFound bool) *TodoService {
	if notify == nil {
		notify = noopNotifier{}
	}
	return &TodoService{todos: todos, notify: notify, emptyAsNotFound: emptyAsNotFound}
}

// Add creates a todo and appends it to the owner's list.
func (s *TodoService) Add(ctx context.Context, ownerID, title string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.Validation("Bad request: Title required")
	}
	if len([]rune(title)) > maxTitleLen {
		return nil, apperror.Validation("Title must be at most 255 characters")
	}
	t := &model.Todo{Title: title, Owner: ownerID}
	if err := s.todos.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("User not registered!")
		}
		return nil, apperror.Internal(err)
	}
	s.notify.TodoChanged(ownerID, live.TodoAdded, *t)
	return t, nil
}

// List returns the owner's todos in insertion order.
func (s *TodoService) List(ctx context.Context, ownerID string) ([]model.Todo, error) {
	todos, err := s.todos.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(todos) == 0 && s.emptyAsNotFound {
		return nil, apperror.NotFound("No todo found")
	}
	return todos, nil
}

// Toggle flips the completion flag.
func (s *TodoService) Toggle(ctx context.Context, ownerID, id string) (*model.Todo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NotFound("Todo not found")
	}
	t, err := s.todos.Toggle(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTodoNotFound) {
			return nil, apperror.NotFound("Todo not found")
		}
		return nil, apperror.Internal(err)
	}
	s.notify.TodoChanged(ownerID, live.TodoToggled, *t)
	return t, nil
}

// Delete removes the todo and its reference and returns what was deleted.
func (s *TodoService) Delete(ctx context.Context, ownerID, id string) (*model.Todo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.NotFound("Todo not found")
	}
	t, err := s.todos.Delete(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrTodoNotFound) {
			return nil, apperror.NotFound("Todo not found")
		}
		return nil, apperror.Internal(err)
	}
	s.notify.TodoChanged(ownerID, live.TodoDeleted, *t)
	return t, nil
}
