package dto

import "time"

type CreateAccountRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type CreateAccountResponse struct {
	Status   string `json:"status"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AuditRecordInfo struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Verdict   string    `json:"verdict"`
	Message   string    `json:"message"`
}

type ListRecordsResponse struct {
	Records []AuditRecordInfo `json:"records"`
	Count   int               `json:"count"`
}
