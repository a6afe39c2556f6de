package iotapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/logging"
)

// SetDefaultStartupApp makes pkg the app launched at boot and confirms the
// change by reading the default-app listing back.
//
// The write is addressed by RelativeID. The read-back matches entries whose
// PackageFullName field contains the relative id; see defaultAppEntry.
func (c *Client) SetDefaultStartupApp(ctx context.Context, pkg PackageDescriptor) error {
	const op = "set startup app"

	appID := base64.StdEncoding.EncodeToString([]byte(pkg.RelativeID))
	path := endpoint(pathSetDefaultApp, map[string]string{"appid": appID})
	if _, err := c.post(ctx, op, path); err != nil {
		return err
	}

	c.logger().Debug("Startup app set, verifying", zap.String("relative_id", pkg.RelativeID))
	return c.verifyStartupApp(ctx, pkg)
}

// verifyStartupApp checks that the device now flags pkg as startup app.
func (c *Client) verifyStartupApp(ctx context.Context, pkg PackageDescriptor) error {
	const op = "verify startup app"

	resp, err := c.call(ctx, op, http.MethodGet, pathDefaultApp)
	if err != nil {
		return err
	}

	var listing struct {
		AppPackages []json.RawMessage `json:"AppPackages"`
	}
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		logging.LogRawBytes(c.logger(), "unparseable default-app listing", resp.Body)
		return NewVerificationError(op, fmt.Sprintf("cannot confirm %s as startup app: listing is unreadable", pkg.Name), err)
	}

	for _, raw := range listing.AppPackages {
		var entry defaultAppEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.PackageFullName == nil {
			continue
		}
		if !strings.Contains(*entry.PackageFullName, pkg.RelativeID) {
			continue
		}
		if entry.IsStartup == nil || !bool(*entry.IsStartup) {
			return NewVerificationError(op, fmt.Sprintf("%s is not flagged as startup app after the update", pkg.Name), nil)
		}
		c.logger().Info("Startup app set", zap.String("package", pkg.FullName))
		return nil
	}

	return NewVerificationError(op, fmt.Sprintf("%s does not appear in the default-app listing", pkg.Name), nil)
}

// GetDefaultApp returns the device's default-app listing. Malformed entries
// are skipped.
func (c *Client) GetDefaultApp(ctx context.Context) (*DefaultAppInfo, error) {
	const op = "get default app"

	resp, err := c.call(ctx, op, http.MethodGet, pathDefaultApp)
	if err != nil {
		return nil, err
	}

	var listing struct {
		DefaultApp  string             `json:"DefaultApp"`
		AppPackages *[]json.RawMessage `json:"AppPackages"`
	}
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		logging.LogRawBytes(c.logger(), "unparseable default-app listing", resp.Body)
		return nil, NewProtocolError(op, "response is not a default-app listing", err)
	}
	if listing.AppPackages == nil {
		return nil, NewProtocolError(op, `response has no "AppPackages" field`, nil)
	}

	info := &DefaultAppInfo{DefaultApp: listing.DefaultApp}
	for i, raw := range *listing.AppPackages {
		var entry defaultAppEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.PackageFullName == nil || entry.IsStartup == nil {
			c.logger().Debug("Skipping malformed default-app entry", zap.Int("index", i))
			continue
		}
		info.Candidates = append(info.Candidates, StartupCandidate{
			RelativeID: *entry.PackageFullName,
			IsStartup:  bool(*entry.IsStartup),
		})
	}
	return info, nil
}
