// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"

	requestutil "github.com/taibuivan/todos/internal/platform/request"
	"github.com/taibuivan/todos/internal/platform/respond"
)

// NewHomeHandler serves GET /, the landing page of a signed-in user.
//
// Anonymous visitors never reach it; the router redirects them to the login page.
func NewHomeHandler(chatEnabled bool) http.HandlerFunc {
	links := map[string]string{"todos": "/api/todos", "session": "/api/auth/session"}
	if chatEnabled {
		links["chat"] = "/api/chat"
	}

	return func(writer http.ResponseWriter, request *http.Request) {
		respond.OK(writer, map[string]any{
			"user":  requestutil.Identity(request),
			"links": links,
		})
	}
}
