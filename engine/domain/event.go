package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaperEvent carries a fetched paper from a harvester to an ingest worker.
type PaperEvent struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Paper     Paper     `json:"paper"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewPaperEvent builds an event whose ID is derived from the paper's title
// and year, so the same paper harvested twice yields the same ID.
func NewPaperEvent(topic string, p Paper, fetchedAt time.Time) PaperEvent {
	return PaperEvent{
		ID:        PaperID(p),
		Topic:     topic,
		Paper:     p,
		FetchedAt: fetchedAt.UTC(),
	}
}

// PaperID returns a deterministic UUID for a paper.
func PaperID(p Paper) string {
	key := "paper:" + strings.ToLower(strings.TrimSpace(p.Title)) + ":" + strconv.Itoa(p.Year)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
