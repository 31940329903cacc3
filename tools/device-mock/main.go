package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// A stand-in for the time-clock HTTP bridge: a handful of users, a punch
// log that grows over the day, and enable/disable endpoints.

type punch struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func main() {
	today := time.Now()
	at := func(hour, min int) time.Time {
		return time.Date(today.Year(), today.Month(), today.Day(), hour, min, 0, 0, time.Local)
	}

	punches := []punch{
		{UserID: "1", Timestamp: at(8, 0)},
		{UserID: "1", Timestamp: at(12, 0)},
		{UserID: "1", Timestamp: at(17, 0)},
		{UserID: "2", Timestamp: at(8, 30)},
	}

	http.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"device_id":     "MOCK001",
			"device_name":   "Mock Clock",
			"serial_number": "MOCK001",
			"mac_address":   "00:11:22:33:44:55",
			"network":       map[string]string{"ip": "192.168.1.201", "gateway": "192.168.1.1"},
		})
	})
	http.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"user_id": "1", "name": "Alice Mock", "privilege": "Admin"},
			{"user_id": "2", "name": "Bob Mock", "privilege": "User"},
		})
	})
	http.HandleFunc("/attendance", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(punches)
	})
	for _, path := range []string{"/device/enable", "/device/disable"} {
		state := path
		http.HandleFunc(state, func(w http.ResponseWriter, r *http.Request) {
			fmt.Println("Device state change:", state)
			w.WriteHeader(http.StatusOK)
		})
	}

	log.Println("Device bridge mock starting on port 4370...")
	log.Fatal(http.ListenAndServe(":4370", nil))
}
