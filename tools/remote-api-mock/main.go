package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
)

// A stand-in for the remote attendance API: hands out a fixed token and
// accepts attendance and device payloads over PUT.

const mockToken = "mock-csrf-token"

func tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("email") == "" || r.Header.Get("password") == "" {
		http.Error(w, "Missing credentials", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"hash": mockToken})
}

func acceptHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRF-TOKEN") != mockToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		log.Printf("Received %s payload (%d bytes)", name, len(body))
		w.WriteHeader(http.StatusOK)
	}
}

func main() {
	http.HandleFunc("/api/token", tokenHandler)
	http.HandleFunc("/api/attendance", acceptHandler("attendance"))
	http.HandleFunc("/api/device", acceptHandler("device"))

	log.Println("Remote API mock server starting on port 8081...")
	log.Fatal(http.ListenAndServe(":8081", nil))
}
