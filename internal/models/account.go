package models

import "time"

// Account is a user-registered remote mailbox the engine synchronizes.
// The engine treats accounts as read-mostly: it only ever writes LastSyncAt.
type Account struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"user_id"`
	Email                 string     `json:"email"`
	IMAPHost              string     `json:"imap_host"`
	IMAPPort              int        `json:"imap_port"`
	IMAPUsername          string     `json:"imap_username"`
	EncryptedIMAPPassword []byte     `json:"-"`
	SyncEnabled           bool       `json:"sync_enabled"`
	LastSyncAt            *time.Time `json:"last_sync_at"`
	CreatedAt             time.Time  `json:"created_at"`
}
