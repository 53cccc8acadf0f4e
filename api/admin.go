package api

import (
	"net/http"

	"github.com/andrebq/todobox/internal/apierr"
	"github.com/andrebq/todobox/store"
)

type userList struct {
	Users []store.AccountStats `json:"users"`
}

// listUsers returns every account together with how many todos it owns
func (s *server) listUsers(w http.ResponseWriter, r *http.Request, _ store.Account) {
	users, err := s.db.ListAccountStats(r.Context())
	if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, userList{Users: users})
}

func (s *server) listAllTodos(w http.ResponseWriter, r *http.Request, _ store.Account) {
	todos, err := s.db.ListAllTodos(r.Context())
	if err != nil {
		apierr.Write(w, r, apierr.Internal(err))
		return
	}
	apierr.WriteJSON(w, http.StatusOK, todoList{Todos: todos})
}
