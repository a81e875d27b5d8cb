package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"loanft/core/state"
	"loanft/crypto"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBuffer       = 64
	wsBacklogPage  = 500
)

// handleEventsWS streams committed events. Query parameters: after replays
// records with a greater sequence first, escrow restricts the stream to one
// escrow.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	var after uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid after cursor", http.StatusBadRequest)
			return
		}
		after = parsed
	}
	var escrow string
	if raw := strings.TrimSpace(r.URL.Query().Get("escrow")); raw != "" {
		addr, err := crypto.ParseAddress(raw)
		if err != nil {
			http.Error(w, "invalid escrow address", http.StatusBadRequest)
			return
		}
		escrow = crypto.FromRaw(addr).String()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, after, escrow); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

// streamEvents replays committed records after the cursor in pages, then
// follows the live feed. A dropped subscription is re-established and the
// replay resumes from the last delivered sequence, so the client never sees a
// gap.
func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, after uint64, escrow string) error {
	last := after
	replay := after > 0
	for {
		// Subscribe before reading the backlog so nothing committed in between
		// is lost; duplicates are skipped by sequence.
		updates, cancel := s.node.SubscribeEvents(wsBuffer)
		if !replay {
			latest, err := s.node.LatestSequence()
			if err != nil {
				cancel()
				return err
			}
			last, replay = latest, true
		}
		var err error
		last, err = s.replayEvents(ctx, conn, last, escrow)
		if err == nil {
			last, err = followEvents(ctx, conn, updates, last, escrow)
		}
		cancel()
		if err != nil {
			return err
		}
	}
}

// replayEvents writes every record after last and returns the new cursor.
func (s *Server) replayEvents(ctx context.Context, conn *websocket.Conn, last uint64, escrow string) (uint64, error) {
	for {
		backlog, err := s.node.EventsSince(last, wsBacklogPage)
		if err != nil {
			return last, err
		}
		for _, rec := range backlog {
			if err := writeEvent(ctx, conn, rec, escrow); err != nil {
				return last, err
			}
			last = rec.Sequence
		}
		if len(backlog) < wsBacklogPage {
			return last, nil
		}
	}
}

// followEvents streams live records until ctx ends or the subscription is
// dropped, in which case it returns the cursor with a nil error.
func followEvents(ctx context.Context, conn *websocket.Conn, updates <-chan *state.EventRecord, last uint64, escrow string) (uint64, error) {
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return last, nil
			}
			if rec.Sequence <= last {
				continue
			}
			if err := writeEvent(ctx, conn, rec, escrow); err != nil {
				return last, err
			}
			last = rec.Sequence
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, rec *state.EventRecord, escrow string) error {
	if rec == nil || rec.Event == nil {
		return nil
	}
	if escrow != "" && rec.Event.Attributes["escrow"] != escrow {
		return nil
	}
	data, err := json.Marshal(newEventResult(rec))
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
