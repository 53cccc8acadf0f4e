package api

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/julienschmidt/httprouter"

	"github.com/andrebq/todobox/internal/apierr"
	"github.com/andrebq/todobox/store"
)

type (
	createTodoRequest struct {
		Content  string `json:"task_content"`
		Priority string `json:"priority"`
	}

	// updateTodoRequest uses pointers so absent fields are left alone
	updateTodoRequest struct {
		Content   *string `json:"task_content"`
		Completed *bool   `json:"is_completed"`
		Priority  *string `json:"priority"`
	}

	todoResponse struct {
		Message string     `json:"message"`
		Todo    store.Todo `json:"todo"`
	}

	todoList struct {
		Todos interface{} `json:"todos"`
	}
)

const (
	msgTodoNotFound   = "Todo not found"
	msgContentMissing = "Task content required"
)

func (s *server) listTodos(w http.ResponseWriter, r *http.Request, acc store.Account) {
	todos, err := s.db.ListTodos(r.Context(), acc.ID)
	if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, todoList{Todos: todos})
}

func (s *server) createTodo(w http.ResponseWriter, r *http.Request, acc store.Account) {
	var req createTodoRequest
	if err := readBody(r, &req); err != nil {
		if isNoData(err) {
			err = apierr.Validation(msgContentMissing)
		}
		apierr.Write(w, r, err)
		return
	}
	content, err := validContent(req.Content)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	prio, err := store.ParsePriority(req.Priority)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("Invalid priority"))
		return
	}
	todo := store.Todo{
		Content:  content,
		Priority: prio,
		OwnerID:  acc.ID,
	}
	if err := s.db.CreateTodo(r.Context(), &todo); err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusCreated, todoResponse{Message: "Todo created", Todo: todo})
}

func (s *server) updateTodo(w http.ResponseWriter, r *http.Request, acc store.Account) {
	todo, err := s.ownedTodo(r, acc)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	var req updateTodoRequest
	if err := readBody(r, &req); err != nil {
		apierr.Write(w, r, err)
		return
	}
	if req.Content != nil {
		todo.Content, err = validContent(*req.Content)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
	}
	if req.Completed != nil {
		todo.Completed = *req.Completed
	}
	if req.Priority != nil {
		todo.Priority, err = store.ParsePriority(*req.Priority)
		if err != nil {
			apierr.Write(w, r, apierr.Validation("Invalid priority"))
			return
		}
	}
	err = s.db.SaveTodo(r.Context(), todo)
	if store.IsNotFound(err) {
		apierr.Write(w, r, apierr.NotFound(msgTodoNotFound))
		return
	} else if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, todoResponse{Message: "Todo updated", Todo: todo})
}

func (s *server) deleteTodo(w http.ResponseWriter, r *http.Request, acc store.Account) {
	todo, err := s.ownedTodo(r, acc)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	err = s.db.DeleteTodo(r.Context(), todo.ID)
	if store.IsNotFound(err) {
		apierr.Write(w, r, apierr.NotFound(msgTodoNotFound))
		return
	} else if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, message{Message: "Todo deleted"})
}

// ownedTodo loads the todo named in the path, it must belong to acc
func (s *server) ownedTodo(r *http.Request, acc store.Account) (store.Todo, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return store.Todo{}, apierr.NotFound(msgTodoNotFound)
	}
	todo, err := s.db.FindTodo(r.Context(), id)
	if store.IsNotFound(err) {
		return store.Todo{}, apierr.NotFound(msgTodoNotFound)
	} else if err != nil {
		return store.Todo{}, apierr.Internal(err)
	}
	if todo.OwnerID != acc.ID {
		return store.Todo{}, apierr.Forbidden("Unauthorized")
	}
	return todo, nil
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apierr.Validation(msgContentMissing)
	}
	if utf8.RuneCountInString(content) > store.MaxTodoContent {
		return "", apierr.Validation("Task content too long")
	}
	return content, nil
}
