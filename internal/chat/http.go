// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/todos/internal/platform/apperr"
	"github.com/taibuivan/todos/internal/platform/constants"
	"github.com/taibuivan/todos/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/todos/internal/platform/request"
	"github.com/taibuivan/todos/internal/platform/respond"
	"github.com/taibuivan/todos/pkg/uuid"
)

// Handler implements the chat HTTP endpoints.
type Handler struct {
	relay       *Relay
	transcripts TranscriptStore
}

// NewHandler constructs a new [Handler]. transcripts may be nil, which
// disables conversation persistence.
func NewHandler(relay *Relay, transcripts TranscriptStore) *Handler {
	return &Handler{relay: relay, transcripts: transcripts}
}

// Routes returns a [chi.Router] mounted at /api/chat.
//
// The router must not sit behind a request timeout: turns span several
// model round-trips. The stream extends its own write deadline instead.
//
// # Endpoints
//   - POST /                  : Runs one turn and streams it as Server-Sent Events.
//   - GET  /{conversationId}  : Stored history of a conversation.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.chat)
	router.Get("/{conversationId}", handler.transcript)

	return router
}

/*
chat handles POST /api/chat.

Response:
  - 200: text/event-stream, terminated by "data: [DONE]"
  - 400: Malformed history
  - 499: The client went away before anything was streamed
  - 500: {error} when the model or a tool failed before anything was streamed
*/
func (handler *Handler) chat(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := ctx.Err(); err != nil {
		respond.Error(writer, request, apperr.ClientClosed(err))
		return
	}

	var body Request
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := check(body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The server-wide write timeout is shorter than a turn.
	controller := http.NewResponseController(writer)
	if err := controller.SetWriteDeadline(time.Now().Add(constants.StreamWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.WarnContext(ctx, "chat_write_deadline_failed", slog.Any("error", err))
	}

	stream := NewStream(writer, uuid.New())
	turn, err := handler.relay.Run(ctx, body.Messages, stream)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeClientClosed) {
			logger.InfoContext(ctx, "chat_turn_cancelled", slog.Bool("streamed", stream.Started()))
			if !stream.Started() {
				respond.Error(writer, request, err)
			}
			return
		}

		if !stream.Started() {
			respond.Error(writer, request, err)
			return
		}

		logger.ErrorContext(ctx, "chat_turn_failed", slog.Any("error", err))
		message := "An error occurred"
		if appError := apperr.As(err); appError != nil {
			message = appError.Message
		}
		if err := stream.Fail(message); err == nil {
			_ = stream.Close()
		}
		return
	}

	if conversationID := body.Data.ConversationID; conversationID != "" && handler.transcripts != nil {
		if err := handler.transcripts.Save(ctx, identity.UserID, conversationID, turn.History); err != nil {
			logger.WarnContext(ctx, "chat_transcript_save_failed", slog.Any("error", err))
		}
	}

	if err := stream.Close(); err != nil {
		logger.DebugContext(ctx, "chat_stream_close_failed", slog.Any("error", err))
	}
}

/*
transcript handles GET /api/chat/{conversationId}.

Response:
  - 200: []Message
  - 404: Unknown or expired conversation
*/
func (handler *Handler) transcript(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if handler.transcripts == nil {
		respond.Error(writer, request, apperr.NotFound("Conversation"))
		return
	}

	history, err := handler.transcripts.Load(request.Context(), identity.UserID, requestutil.ID(request, "conversationId"))
	if err != nil {
		if errors.Is(err, ErrTranscriptNotFound) {
			err = apperr.NotFound("Conversation")
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, history)
}
