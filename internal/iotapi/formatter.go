package iotapi

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// FormatPackageList returns the packages as aligned text columns: name,
// removability and full name.
func FormatPackageList(pkgs []PackageDescriptor) string {
	if len(pkgs) == 0 {
		return "(no packages)\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREMOVABLE\tFULL NAME")
	for _, p := range pkgs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, yesNo(p.CanUninstall), p.FullName)
	}
	_ = w.Flush()
	return b.String()
}

// FormatPackageDetail returns every identifier of a single package.
func FormatPackageDetail(p PackageDescriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name:         %s\n", p.Name)
	fmt.Fprintf(&b, "Full Name:    %s\n", p.FullName)
	fmt.Fprintf(&b, "Relative ID:  %s\n", p.RelativeID)
	fmt.Fprintf(&b, "Removable:    %s\n", yesNo(p.CanUninstall))

	return b.String()
}

// Summary returns a short description of the startup configuration
func (d *DefaultAppInfo) Summary() string {
	if c, ok := d.Startup(); ok {
		return fmt.Sprintf("Startup app: %s (%d candidates)", c.RelativeID, len(d.Candidates))
	}
	if d.DefaultApp != "" {
		return fmt.Sprintf("Startup app: %s (%d candidates)", d.DefaultApp, len(d.Candidates))
	}
	return fmt.Sprintf("No startup app set (%d candidates)", len(d.Candidates))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
