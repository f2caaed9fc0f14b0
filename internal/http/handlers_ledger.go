package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"finanzas/internal/amqp"
	"finanzas/internal/ledger"
)

// Success messages shown by the page after a write.
var writeMessages = map[amqp.Operation]string{
	amqp.OpCreate: "Registro creado",
	amqp.OpUpdate: "Registro actualizado",
	amqp.OpDelete: "Registro eliminado",
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	resource, err := ledger.ParseResource(mux.Vars(r)["resource"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := NewRequestBodyParser(r).RecordJSON()
	if err != nil {
		writeError(w, r, errBadBody)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	created, err := s.ledger.Create(ctx, resource, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ledgerChanged(resource, amqp.OpCreate).
		Status(http.StatusCreated).
		TriggerFormReset().
		BodyJSON(created).
		Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, err := ledger.ParseResource(vars["resource"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := NewRequestBodyParser(r).RecordJSON()
	if err != nil {
		writeError(w, r, errBadBody)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	updated, err := s.ledger.Update(ctx, resource, vars["id"], body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ledgerChanged(resource, amqp.OpUpdate).BodyJSON(updated).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, err := ledger.ParseResource(vars["resource"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	if err := s.ledger.Delete(ctx, resource, vars["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	ledgerChanged(resource, amqp.OpDelete).
		BodyJSON(map[string]string{"id": vars["id"], "message": writeMessages[amqp.OpDelete]}).
		Write(w)
}

func ledgerChanged(resource ledger.Resource, op amqp.Operation) *HTMXResponseBuilder {
	return NewHTMXResponse().
		TriggerLedgerChanged(string(resource), string(op)).
		TriggerSuccessNotification(writeMessages[op])
}

// handleLogin forwards the credentials to the ledger, which keeps the
// token for the calls that follow. The token itself never leaves the
// server.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := NewRequestBodyParser(r).Credentials()
	if err != nil {
		writeError(w, r, errBadBody)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		BadRequestError(msgMissingCreds).Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	session, err := s.ledger.Login(ctx, creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewHTMXResponse().
		TriggerSessionStarted(session.Subject).
		BodyJSON(session).
		Write(w)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	creds, err := NewRequestBodyParser(r).Credentials()
	if err != nil {
		writeError(w, r, errBadBody)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		BadRequestError(msgMissingCreds).Write(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	msg, err := s.ledger.Register(ctx, creds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msg == "" {
		msg = "Usuario registrado"
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": msg})
}
