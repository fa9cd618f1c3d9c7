// Package bridgeclient talks to the HTTP API of a running bridge server.
package bridgeclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BertoldVdb/ADMXBridge/bridge"
	"github.com/BertoldVdb/ADMXBridge/bridge/api"
)

var ErrBusy = errors.New("bridge is busy")

type Client struct {
	client http.Client
	url    string

	info api.InfoResponse
}

func New(url string) (*Client, error) {
	c := &Client{
		client: http.Client{
			Timeout: 60 * time.Second,
		},

		url: strings.TrimSuffix(url, "/"),
	}

	infoRaw, err := c.doReq("info", nil)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(infoRaw, &c.info); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) doReq(endpoint string, body []byte) ([]byte, error) {
	var rdr io.Reader
	t := "GET"

	if body != nil {
		rdr = bytes.NewBuffer(body)
		t = "POST"
	}

	req, err := http.NewRequest(t, c.url+"/"+endpoint, rdr)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil, ErrBusy
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("request error %s", resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// Command runs one command line and returns the response lines without the
// block delimiter.
func (c *Client) Command(line string) ([]string, error) {
	raw, err := c.doReq("command", []byte(line))
	if err != nil {
		return nil, err
	}

	text := strings.TrimSuffix(string(raw), string([]byte{bridge.Delimiter}))
	text = strings.TrimSuffix(text, "\r\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\r\n"), nil
}

func (c *Client) Status() (api.StatusResponse, error) {
	var status api.StatusResponse

	raw, err := c.doReq("status", nil)
	if err != nil {
		return status, err
	}

	return status, json.Unmarshal(raw, &status)
}

func (c *Client) BoardID() string {
	return c.info.BoardID
}

func (c *Client) Firmware() string {
	return c.info.Firmware
}

func (c *Client) Close() error {
	return nil
}
