// Package store keeps a local history of dispatched service calls in
// sqlite, so batch runs can be audited after the fact.
package store

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// Initialize DB connection
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	// Create tables if not exists
	callTable := `
	CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		service TEXT,
		mode TEXT,
		job_id TEXT,
		status TEXT,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS call_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	if _, err := db.Exec(callTable); err != nil {
		return err
	}
	if _, err := db.Exec(errorTable); err != nil {
		return err
	}

	return nil
}

// SaveCall records a newly dispatched service call
func SaveCall(callID, service, mode string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO calls (id, service, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		callID, service, mode, "running", now)
	return err
}

// SetCallJob attaches the remote job identifier to a batch call
func SetCallJob(callID, jobID string) error {
	_, err := db.Exec(`UPDATE calls SET job_id = ? WHERE id = ?`, jobID, callID)
	return err
}

// FinishCall marks a call terminal with the given status
func FinishCall(callID, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE calls SET status = ?, finished_at = ? WHERE id = ?`, status, now, callID)
	return err
}

// SaveCallError records an error for a call
func SaveCallError(callID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO call_errors (call_id, error_message, created_at) VALUES (?, ?, ?)`,
		callID, err.Error(), now)
	return e
}

// ListCalls returns all recorded calls with basic info
func ListCalls() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, service, mode, status, started_at FROM calls ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []map[string]interface{}
	for rows.Next() {
		var id, service, mode, status string
		var startedAt time.Time
		if err := rows.Scan(&id, &service, &mode, &status, &startedAt); err != nil {
			return nil, err
		}
		calls = append(calls, map[string]interface{}{
			"id":        id,
			"service":   service,
			"mode":      mode,
			"status":    status,
			"startedAt": startedAt,
		})
	}
	return calls, nil
}

// GetCall fetches one call's full record
func GetCall(callID string) (map[string]interface{}, error) {
	var service, mode, status string
	var jobID sql.NullString
	var startedAt time.Time
	var finishedAt sql.NullTime

	err := db.QueryRow(`SELECT service, mode, job_id, status, started_at, finished_at FROM calls WHERE id = ?`, callID).
		Scan(&service, &mode, &jobID, &status, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	call := map[string]interface{}{
		"id":        callID,
		"service":   service,
		"mode":      mode,
		"status":    status,
		"startedAt": startedAt,
	}
	if jobID.Valid {
		call["jobID"] = jobID.String
	}
	if finishedAt.Valid {
		call["finishedAt"] = finishedAt.Time
	}
	return call, nil
}

// CallErrors returns the recorded errors for a call
func CallErrors(callID string) ([]string, error) {
	rows, err := db.Query(`SELECT error_message FROM call_errors WHERE call_id = ? ORDER BY created_at`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
