/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and manages
core service dependencies like the database and router.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"vitalog/internal/database"
	"vitalog/internal/metric"
	"vitalog/internal/readings"
	"vitalog/internal/storage/postgres"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service and connection pool.
	db database.Service

	// readings serves the metric reading routes.
	readings *readings.Handler
}

// NewServer initializes a new Server instance and returns a configured
// *http.Server. It reads the port from the environment and sets
// production-ready network timeouts.
func NewServer() *http.Server {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	db := database.NewService()
	var repo metric.Repository = postgres.New(db.Pool())

	newApp := &Server{
		port:     port,
		db:       db,
		readings: readings.NewHandler(repo),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
