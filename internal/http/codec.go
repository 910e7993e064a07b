package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

// EncodeBody serializes a request body. Byte slices and readers are sent
// raw; everything else is JSON. A nil body yields no payload.
func EncodeBody(body interface{}) ([]byte, string, error) {
	switch typed := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return typed, constants.MediaTypeOctetStream, nil
	case io.Reader:
		data, err := io.ReadAll(typed)
		if err != nil {
			return nil, "", fmt.Errorf("reading request body: %w", err)
		}

		return data, constants.MediaTypeOctetStream, nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	return data, constants.MediaTypeJSON, nil
}

type mediaKind int

const (
	mediaUnknown mediaKind = iota
	mediaJSON
	mediaText
	mediaBinary
)

// Codec decodes response envelopes into typed values.
type Codec struct {
	mediaTypes *ghe.Memo[string, mediaKind]
}

// NewCodec creates a codec with an empty media type memo.
func NewCodec() *Codec {
	return &Codec{mediaTypes: ghe.NewMemo[string, mediaKind]()}
}

// Reset drops memoized media types.
func (c *Codec) Reset() {
	c.mediaTypes.Clear()
}

// Decode fills target from resp. A nil target means no value is expected
// and any body is ignored. *[]byte and *string targets receive the raw body;
// other targets are decoded as JSON. Responses without a Content-Type are
// treated as JSON.
func (c *Codec) Decode(resp *Response, target interface{}) error {
	if target == nil {
		return nil
	}

	if resp == nil {
		return ghe.NewArgumentError("response", "is required")
	}

	switch typed := target.(type) {
	case *[]byte:
		*typed = append([]byte(nil), resp.Body...)

		return nil
	case *string:
		*typed = string(resp.Body)

		return nil
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return decodeError(resp, ghe.ErrEmptyResponseBody)
	}

	contentType := resp.Headers.Get(constants.HeaderContentType)
	if contentType != "" && c.mediaTypes.GetOrCompute(contentType, classifyMediaType) != mediaJSON {
		return decodeError(resp, fmt.Errorf("%w: %s", ghe.ErrUnsupportedMediaType, contentType))
	}

	err := json.Unmarshal(resp.Body, target)
	if err != nil {
		return decodeError(resp, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}

// DecodeJSON decodes resp into a new T.
func DecodeJSON[T any](codec *Codec, resp *Response) (*T, error) {
	var result T

	err := codec.Decode(resp, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func decodeError(resp *Response, cause error) error {
	return &ghe.Error{
		Kind:       ghe.KindServerError,
		StatusCode: resp.StatusCode,
		Message:    "undecodable response body",
		Cause:      cause,
	}
}

func classifyMediaType(contentType string) mediaKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return mediaUnknown
	}

	switch {
	case mediaType == constants.MediaTypeJSON, strings.HasSuffix(mediaType, "+json"):
		return mediaJSON
	case strings.HasPrefix(mediaType, "text/"):
		return mediaText
	case mediaType == constants.MediaTypeOctetStream:
		return mediaBinary
	default:
		return mediaUnknown
	}
}
