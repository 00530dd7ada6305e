package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"TodayBrief/utils"
)

// ErrStaleConversation is returned when an action does not fit the current phase,
// typically after a button from an expired flow is pressed.
var ErrStaleConversation = errors.New("session: stale conversation")

const noteKeyPrefix = "note_state:"

type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseAwaitingText         Phase = "awaiting_text"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

// NoteState is the pending note of one user.
type NoteState struct {
	ChatID int64  `json:"chat_id"`
	Phase  Phase  `json:"phase"`
	Note   string `json:"note,omitempty"`
}

// Notes keeps the note-taking conversation of every user in redis.
type Notes struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewNotes(rdb redis.Cmdable, ttl time.Duration) *Notes {
	return &Notes{rdb: rdb, ttl: ttl}
}

func noteKey(userID int64) string {
	return noteKeyPrefix + strconv.FormatInt(userID, 10)
}

// State returns the current state; a user with nothing pending is idle.
func (n *Notes) State(ctx context.Context, userID int64) (NoteState, error) {
	var st NoteState
	found, err := utils.GetJSON(ctx, n.rdb, noteKey(userID), &st)
	if err != nil {
		return NoteState{}, fmt.Errorf("State: user %d: %w", userID, err)
	}
	if !found {
		return NoteState{Phase: PhaseIdle}, nil
	}
	return st, nil
}

// Begin starts a new note, discarding anything pending.
func (n *Notes) Begin(ctx context.Context, userID, chatID int64) error {
	return n.put(ctx, userID, NoteState{ChatID: chatID, Phase: PhaseAwaitingText})
}

// Submit records the note text and asks for confirmation.
func (n *Notes) Submit(ctx context.Context, userID int64, text string) (NoteState, error) {
	st, err := n.expect(ctx, userID, PhaseAwaitingText)
	if err != nil {
		return NoteState{}, err
	}
	st.Phase = PhaseAwaitingConfirmation
	st.Note = text
	return st, n.put(ctx, userID, st)
}

// Rewrite drops the pending text and waits for a new one.
func (n *Notes) Rewrite(ctx context.Context, userID int64) (NoteState, error) {
	st, err := n.expect(ctx, userID, PhaseAwaitingConfirmation)
	if err != nil {
		return NoteState{}, err
	}
	st.Phase = PhaseAwaitingText
	st.Note = ""
	return st, n.put(ctx, userID, st)
}

// Confirm ends the conversation and returns the note to persist.
// The state is gone afterwards whether or not the caller manages to save it.
func (n *Notes) Confirm(ctx context.Context, userID int64) (NoteState, error) {
	st, err := n.expect(ctx, userID, PhaseAwaitingConfirmation)
	if err != nil {
		return NoteState{}, err
	}
	if err := n.rdb.Del(ctx, noteKey(userID)).Err(); err != nil {
		return NoteState{}, fmt.Errorf("Confirm: user %d: %w", userID, err)
	}
	return st, nil
}

func (n *Notes) expect(ctx context.Context, userID int64, want Phase) (NoteState, error) {
	st, err := n.State(ctx, userID)
	if err != nil {
		return NoteState{}, err
	}
	if st.Phase != want {
		return NoteState{}, ErrStaleConversation
	}
	return st, nil
}

func (n *Notes) put(ctx context.Context, userID int64, st NoteState) error {
	if err := utils.SetJSON(ctx, n.rdb, noteKey(userID), st, n.ttl); err != nil {
		return fmt.Errorf("failed to store note state for user %d: %w", userID, err)
	}
	return nil
}
