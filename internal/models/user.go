package models

import "time"

type User struct {
	ID                 int64
	Email              string
	FullName           string
	SecurityQuestion   string
	SecurityAnswerHash string
	CreatedAt          time.Time
}
