// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/dotandev/erst/internal/errors"
)

// DefaultVersionConstraint is the node range whose simulateTransaction
// response carries restorePreamble.
const DefaultVersionConstraint = ">= 20.0.0"

type VersionInfo struct {
	Version            string `json:"version"`
	CommitHash         string `json:"commitHash"`
	BuildTimestamp     string `json:"buildTimestamp"`
	CaptiveCoreVersion string `json:"captiveCoreVersion"`
	ProtocolVersion    int    `json:"protocolVersion"`
}

func (c *Client) GetVersionInfo(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.call(ctx, "getVersionInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckVersion fails with ErrIncompatibleNode unless the node's version
// satisfies constraint.
func (c *Client) CheckVersion(ctx context.Context, constraint string) (*VersionInfo, error) {
	info, err := c.GetVersionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if err := SatisfiesConstraint(info.Version, constraint); err != nil {
		return info, err
	}
	return info, nil
}

// SatisfiesConstraint checks a node version string such as
// "21.1.0-a2f4be5b" against a go-version constraint.
func SatisfiesConstraint(nodeVersion, constraint string) error {
	constraints, err := version.NewConstraint(constraint)
	if err != nil {
		return err
	}
	v, err := version.NewVersion(strings.TrimPrefix(nodeVersion, "v"))
	if err != nil {
		return errors.WrapIncompatibleNode(nodeVersion, constraint)
	}
	// Build suffixes like "-a2f4be5b" parse as prereleases; compare the core.
	core, err := version.NewVersion(v.Core().String())
	if err != nil {
		return err
	}
	if !constraints.Check(core) {
		return errors.WrapIncompatibleNode(nodeVersion, constraint)
	}
	return nil
}
