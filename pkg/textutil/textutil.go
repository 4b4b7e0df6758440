// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textutil normalizes user-entered text before it is validated or stored.
//
// # Usage
//
// Todo titles arrive from browsers and from the chat model. Both may send
// decomposed Unicode or stray whitespace, which would otherwise make length
// checks and substring search disagree with what the user sees.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// likeEscaper escapes the LIKE/ILIKE wildcard characters.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// NormalizeTitle composes the string to NFC, trims it and collapses
// internal whitespace runs into a single space.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFC (é stays a single rune, so it counts as one character).
// 2. Splits on any Unicode whitespace.
// 3. Joins the fields back with single spaces.
func NormalizeTitle(s string) string {
	composed := norm.NFC.String(s)
	return strings.Join(strings.FieldsFunc(composed, unicode.IsSpace), " ")
}

// EscapeLike makes s safe to embed in an ILIKE pattern as a literal.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Lower returns the NFC lowercase form of s, the key ILIKE compares on.
//
// It lowercases rune by rune and never folds, so "ß" and "ss" stay distinct.
func Lower(s string) string {
	// A Caser holds state, so each call gets its own.
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}
