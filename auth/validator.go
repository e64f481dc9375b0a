package auth

import (
	"campus-chat/domain"
	"campus-chat/errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MaxQueryLength bounds a user search query, counted in runes.
const MaxQueryLength = 100

type SendMessageRequest struct {
	ConversationID string `validate:"required"`
	Content        string `validate:"required"`
}

type SearchRequest struct {
	Query string `validate:"required"`
}

// ValidateMessage trims content and checks it is sendable.
// It returns the trimmed content.
func ValidateMessage(conversationID domain.ConversationID, content string, maxLength int) (string, error) {
	valReq := SendMessageRequest{
		ConversationID: string(conversationID),
		Content:        strings.TrimSpace(content),
	}
	if err := validate.Struct(valReq); err != nil {
		if valReq.Content == "" {
			return "", errors.ErrEmptyContent
		}
		return "", fmt.Errorf("%w: conversation id is required", errors.ErrNotFound)
	}
	if maxLength > 0 {
		if err := validate.Var(valReq.Content, fmt.Sprintf("max=%d", maxLength)); err != nil {
			return "", errors.ErrContentTooLong
		}
	}
	return valReq.Content, nil
}

// ValidateSearch trims the query and rejects empty or oversized input.
func ValidateSearch(query string) (string, error) {
	valReq := SearchRequest{Query: strings.TrimSpace(query)}
	if err := validate.Struct(valReq); err != nil {
		return "", errors.ErrEmptyQuery
	}
	if utf8.RuneCountInString(valReq.Query) > MaxQueryLength {
		return "", errors.ErrQueryTooLong
	}
	return valReq.Query, nil
}
