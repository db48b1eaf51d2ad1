package http

import (
	"net/http"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
	"arithmetic-practice-service/internal/fileio"
	"github.com/gorilla/mux"
)

// Container holds the dependencies the router wires into handlers.
type Container struct {
	Service        *app.PracticeService
	Importer       *fileio.Importer
	Rules          *domain.RuleTable
	Limits         Limits
	AllowedOrigins []string
}

// NewRouter builds the REST API under /api plus /ws and /healthz.
func NewRouter(c Container) http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(c.AllowedOrigins))

	practice := NewPracticeHandler(c.Service, c.Importer, c.Rules, c.Limits)
	wsHandler := NewWSHandler(c.Service, c.Limits)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/practice/start", practice.Start).Methods("POST", "OPTIONS")
	api.HandleFunc("/practice/submit", practice.Submit).Methods("POST", "OPTIONS")
	api.HandleFunc("/practice/finish", practice.Finish).Methods("POST", "OPTIONS")
	api.HandleFunc("/practice/history", practice.History).Methods("GET", "OPTIONS")
	api.HandleFunc("/practice/wrong-problems", practice.WrongProblems).Methods("GET", "OPTIONS")
	api.HandleFunc("/practice/remove-wrong-problem", practice.RemoveWrongProblem).Methods("POST", "OPTIONS")
	api.HandleFunc("/practice/{id:[0-9]+}", practice.Get).Methods("GET", "OPTIONS")

	api.HandleFunc("/problem/generate", practice.Generate).Methods("POST", "OPTIONS")
	api.HandleFunc("/problem/grades", practice.Grades).Methods("GET", "OPTIONS")

	api.HandleFunc("/file/import", practice.Import).Methods("POST", "OPTIONS")
	api.HandleFunc("/file/export", practice.Export).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods("GET")

	return r
}
