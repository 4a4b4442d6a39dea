package pipeline

import (
	"context"
	"errors"
	"net/http"

	"pdfsum/internal/extractor"
	"pdfsum/internal/summarizer"
)

type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindExtraction        Kind = "extraction_failure"
	KindTooLarge          Kind = "too_large"
	KindEmptyContent      Kind = "empty_content"
	KindTransport         Kind = "transport_failure"
	KindNonSuccess        Kind = "non_success_response"
	KindMalformedResponse Kind = "malformed_response"
)

// KindOf classifies an error returned by the pipeline.
func KindOf(err error) Kind {
	var (
		statusErr    *summarizer.StatusError
		transportErr *summarizer.TransportError
		maxBytesErr  *http.MaxBytesError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyContent):
		return KindEmptyContent
	case errors.Is(err, extractor.ErrTooLarge), errors.As(err, &maxBytesErr):
		return KindTooLarge
	case errors.Is(err, extractor.ErrExtraction):
		return KindExtraction
	case errors.As(err, &statusErr):
		return KindNonSuccess
	case errors.As(err, &transportErr),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransport
	case errors.Is(err, summarizer.ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindUnknown
	}
}

// UserMessage is the text shown to the person who uploaded the document.
func UserMessage(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case KindEmptyContent:
		return "No extractable text found in the PDF."
	case KindTooLarge:
		return "The uploaded file is too large."
	case KindExtraction:
		return "The uploaded file could not be read as a PDF."
	case KindNonSuccess:
		var statusErr *summarizer.StatusError
		errors.As(err, &statusErr)

		return statusErr.Error()
	case KindTransport:
		return "The summarization service could not be reached. Please try again later."
	case KindMalformedResponse:
		return "The summarization service returned an unreadable response."
	default:
		return "Something went wrong while summarizing the document."
	}
}
