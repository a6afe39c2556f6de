package iotapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/winiotctl/internal/logging"
)

// ListInstalledPackages returns the packages installed on the device, in the
// order the device reports them.
//
// Entries with a missing or malformed field are skipped and logged; the call
// only fails when the listing itself is unusable.
func (c *Client) ListInstalledPackages(ctx context.Context) ([]PackageDescriptor, error) {
	const op = "list packages"

	resp, err := c.call(ctx, op, http.MethodGet, pathPackages)
	if err != nil {
		return nil, err
	}

	var listing struct {
		InstalledPackages *[]json.RawMessage `json:"InstalledPackages"`
	}
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		logging.LogRawBytes(c.logger(), "unparseable package listing", resp.Body)
		return nil, NewProtocolError(op, "response is not a package listing", err)
	}
	if listing.InstalledPackages == nil {
		return nil, NewProtocolError(op, `response has no "InstalledPackages" field`, nil)
	}

	packages := make([]PackageDescriptor, 0, len(*listing.InstalledPackages))
	for i, raw := range *listing.InstalledPackages {
		var entry installedPackageEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.logger().Debug("Skipping malformed package entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		pkg, err := entry.descriptor()
		if err != nil {
			c.logger().Debug("Skipping incomplete package entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		packages = append(packages, pkg)
	}

	c.logger().Debug("Listed installed packages",
		zap.Int("reported", len(*listing.InstalledPackages)),
		zap.Int("usable", len(packages)),
	)
	return packages, nil
}

// RemovePackage uninstalls pkg, addressed by its full name. Packages the
// device marks as non-removable are refused without contacting the device.
func (c *Client) RemovePackage(ctx context.Context, pkg PackageDescriptor) error {
	const op = "remove package"

	if !pkg.CanUninstall {
		return NewPolicyError(op, fmt.Sprintf("package %s is marked as non-removable on the device", pkg.Name))
	}

	path := endpoint(pathPackage, map[string]string{"package": pkg.FullName})
	if _, err := c.call(ctx, op, http.MethodDelete, path); err != nil {
		return err
	}

	c.logger().Info("Removed package", zap.String("package", pkg.FullName))
	return nil
}

// RebootDevice asks the device to restart. The device goes down shortly after
// answering, so there is nothing to verify.
func (c *Client) RebootDevice(ctx context.Context) error {
	if _, err := c.post(ctx, "reboot", pathRestart); err != nil {
		return err
	}
	c.logger().Info("Reboot requested", zap.String("device", c.BaseURL))
	return nil
}
