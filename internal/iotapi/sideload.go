package iotapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/logging"
)

// SideloadPackage uploads the package file at filePath and blocks until the
// device's package manager reports the install result, the sideload timeout
// elapses, or ctx is cancelled.
func (c *Client) SideloadPackage(ctx context.Context, filePath string) error {
	const op = "sideload package"

	fileName := filepath.Base(filePath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		return &DeviceError{Type: ErrTypeIO, Op: op, Message: fmt.Sprintf("failed to read %s", filePath), Err: err}
	}

	body, contentType, err := buildSideloadBody(fileName, data)
	if err != nil {
		return &DeviceError{Type: ErrTypeIO, Op: op, Message: "failed to build upload body", Err: err}
	}

	opID := uuid.NewString()
	log := c.logger().With(zap.String("op_id", opID), zap.String("file", fileName))
	log.Info("Uploading package", zap.Int("bytes", len(data)))

	path := endpoint(pathSideload, map[string]string{"package": fileName})
	resp, err := c.do(ctx, op, http.MethodPost, path, body, contentType)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return NewTransportError(op, resp.StatusCode)
	}

	var accepted struct {
		Reason *string `json:"Reason"`
	}
	if err := json.Unmarshal(resp.Body, &accepted); err != nil {
		logging.LogRawBytes(log, "unparseable sideload response", resp.Body)
		return NewProtocolError(op, "upload succeeded but the file was not accepted", err)
	}
	if accepted.Reason == nil || !strings.Contains(*accepted.Reason, "accepted") {
		return NewProtocolError(op, "upload succeeded but the file was not accepted", nil)
	}

	log.Info("Package accepted, waiting for install", zap.String("reason", *accepted.Reason))

	poller := &installPoller{
		client:   c,
		timeout:  c.sideloadTimeout,
		interval: c.pollInterval,
		log:      log,
	}
	if err := poller.run(ctx); err != nil {
		return fmt.Errorf("sideload %s: %w", fileName, err)
	}
	return nil
}

// buildSideloadBody builds the multipart body. The device expects the part
// name and filename to both be the package file name, quoted.
func buildSideloadBody(fileName string, data []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	quoted := escapeQuotes(fileName)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoted, quoted))
	header.Set("Content-Type", "application/octet-stream")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// installPoller turns the asynchronous install into a synchronous result.
//
// The device answers the state endpoint with 204 while installing and with
// 200 plus a Success flag once done. Non-2xx answers are fatal; anything else
// that is not a usable 200 body means "not yet".
type installPoller struct {
	client   *Client
	timeout  time.Duration
	interval time.Duration
	log      *zap.Logger

	state InstallState
	polls int
}

// transition logs the state change; the final state is logged at info level
func (p *installPoller) transition(to InstallState, fields ...zap.Field) {
	fields = append(fields,
		zap.Stringer("from", p.state),
		zap.Stringer("to", to),
		zap.Int("polls", p.polls),
	)
	if to.Terminal() {
		p.log.Info("Install finished", fields...)
	} else {
		p.log.Debug("Install state change", fields...)
	}
	p.state = to
}

func (p *installPoller) run(ctx context.Context) error {
	const op = "poll install state"

	p.state = StatePolling
	start := time.Now()

	for time.Since(start) < p.timeout {
		p.polls++
		resp, err := p.client.do(ctx, op, http.MethodGet, pathInstallState, nil, "")
		if err != nil {
			if IsCancelled(err) {
				p.transition(StateCancelled)
			}
			return err
		}
		if !resp.ok() {
			return NewTransportError(op, resp.StatusCode)
		}

		if resp.StatusCode == http.StatusOK {
			if result, ok := parseInstallState(resp.Body); ok {
				if *result.Success {
					p.transition(StateSucceeded, zap.Duration("elapsed", time.Since(start)))
					return nil
				}
				p.transition(StateFailed, zap.String("reason", result.Reason), zap.String("code_text", result.CodeText))
				return installFailure(result)
			}
			logging.LogRawBytes(p.log, "unparseable install state, retrying", resp.Body)
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.transition(StateCancelled)
			return &DeviceError{Type: ErrTypeCancelled, Op: op, Message: "install wait cancelled", Err: ctx.Err()}
		case <-timer.C:
		}
	}

	p.transition(StateTimedOut)
	return &DeviceError{
		Type:    ErrTypeTimeout,
		Op:      op,
		Message: fmt.Sprintf("the operation timed out after %s (%d polls)", p.timeout, p.polls),
	}
}

func installFailure(result installStateResponse) *DeviceError {
	msg := "uploaded file could not be processed by the device's package manager"
	detail := result.Reason
	if result.CodeText != "" {
		if detail != "" {
			detail += "; "
		}
		detail += result.CodeText
	}
	if detail != "" {
		msg += ": " + detail
	}
	return &DeviceError{Type: ErrTypeInstall, Op: "sideload package", Message: msg}
}
