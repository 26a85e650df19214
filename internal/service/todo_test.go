package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/iliyamo/todo-app/internal/apperror"
	"github.com/iliyamo/todo-app/internal/live"
	"github.com/iliyamo/todo-app/internal/repository"
)

func TestTodoLifecycle(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice", "alice@example.com")
	ctx := context.Background()

	_, err := e.todos.List(ctx, alice.ID)
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)

	_, err = e.todos.Add(ctx, alice.ID, "   ")
	wantKind(t, err, apperror.KindValidation, http.StatusBadRequest)

	first, err := e.todos.Add(ctx, alice.ID, "buy milk")
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if first.IsCompleted || first.Owner != alice.ID {
		t.Errorf("Add() = %+v", first)
	}
	second, _ := e.todos.Add(ctx, alice.ID, "walk dog")

	list, err := e.todos.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("List() = %+v, want [first, second]", list)
	}

	u, _ := e.users.GetByID(ctx, alice.ID)
	if len(u.Todos) != 2 || u.Todos[0] != first.ID {
		t.Errorf("user.Todos = %v", u.Todos)
	}

	on, err := e.todos.Toggle(ctx, alice.ID, first.ID)
	if err != nil || !on.IsCompleted {
		t.Fatalf("Toggle() = %+v, %v", on, err)
	}
	off, err := e.todos.Toggle(ctx, alice.ID, first.ID)
	if err != nil || off.IsCompleted != first.IsCompleted {
		t.Fatalf("Toggle twice = %+v, %v; want original state", off, err)
	}

	del, err := e.todos.Delete(ctx, alice.ID, first.ID)
	if err != nil || del.ID != first.ID {
		t.Fatalf("Delete() = %+v, %v", del, err)
	}
	u, _ = e.users.GetByID(ctx, alice.ID)
	for _, id := range u.Todos {
		if id == first.ID {
			t.Error("deleted todo still referenced by its owner")
		}
	}
	_, err = e.todos.Delete(ctx, alice.ID, first.ID)
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)

	want := []string{live.TodoAdded, live.TodoAdded, live.TodoToggled, live.TodoToggled, live.TodoDeleted}
	if len(e.notes.kinds) != len(want) {
		t.Fatalf("notifications = %v, want %v", e.notes.kinds, want)
	}
	for i := range want {
		if e.notes.kinds[i] != want[i] {
			t.Errorf("notification %d = %s, want %s", i, e.notes.kinds[i], want[i])
		}
	}
}

func TestTodoScopedToOwner(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice", "alice@example.com")
	bob := e.register(t, "bob", "bob@example.com")
	ctx := context.Background()

	td, _ := e.todos.Add(ctx, alice.ID, "secret plan")

	_, err := e.todos.Toggle(ctx, bob.ID, td.ID)
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)
	_, err = e.todos.Delete(ctx, bob.ID, td.ID)
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)
	_, err = e.todos.List(ctx, bob.ID)
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)
}

func TestTodoAddUnknownOwner(t *testing.T) {
	e := newEnv(t)
	_, err := e.todos.Add(context.Background(), "no-such-user", "x")
	wantKind(t, err, apperror.KindNotFound, http.StatusNotFound)
}

func TestListEmptyAsArray(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "alice", "alice@example.com")
	svc := NewTodoService(repository.NewTodoRepo(e.db), nil, false)

	list, err := svc.List(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", list)
	}
}
