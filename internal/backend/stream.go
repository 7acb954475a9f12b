package backend

import (
	"context"
	"io"
	"net/http"
)

// OpenStream posts content to the conversation and returns the reply body
// for incremental reading. The caller must close it. A non-success status
// is an ErrNetwork and no body is returned.
func (c *Client) OpenStream(ctx context.Context, conversationID, content string) (io.ReadCloser, error) {
	op := "send message to " + conversationID

	resp, err := c.doRequest(ctx, http.MethodPost, conversationPath(conversationID), sendRequest{Content: content})
	if err != nil {
		return nil, networkError(op, 0, err)
	}

	if err := checkStatus(op, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}
