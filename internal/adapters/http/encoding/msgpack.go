// Package encoding negotiates JSON or MessagePack bodies for the HTTP API.
package encoding

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const ContentTypeMsgpack = "application/msgpack"
const ContentTypeJSON = "application/json"

// MaxBodySize bounds decoded request bodies
const MaxBodySize = 1 << 20

// NegotiateContentType checks the Accept header and returns the preferred content type
func NegotiateContentType(r *http.Request) string {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return ContentTypeJSON
	}
	if strings.Contains(accept, ContentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack") {
		return ContentTypeMsgpack
	}
	return ContentTypeJSON
}

// IsMsgpackRequest reports whether the request body is MessagePack
func IsMsgpackRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == ContentTypeMsgpack || mt == "application/x-msgpack"
}

// WriteMsgpack writes a MessagePack response with the given status code
func WriteMsgpack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeMsgpack)
	w.WriteHeader(status)
	return msgpack.NewEncoder(w).Encode(data)
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Write encodes data in the format the client asked for
func Write(w http.ResponseWriter, r *http.Request, status int, data any) error {
	if NegotiateContentType(r) == ContentTypeMsgpack {
		return WriteMsgpack(w, status, data)
	}
	return WriteJSON(w, status, data)
}

// ReadMsgpack reads MessagePack data from the request body
func ReadMsgpack(r *http.Request, target any) error {
	return msgpack.NewDecoder(r.Body).Decode(target)
}

// Decode reads a size-limited request body as JSON or MessagePack per Content-Type
func Decode(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var err error
	if IsMsgpackRequest(r) {
		err = ReadMsgpack(r, target)
	} else {
		err = json.NewDecoder(r.Body).Decode(target)
	}
	if err == io.EOF {
		return fmt.Errorf("empty request body")
	}
	return err
}
