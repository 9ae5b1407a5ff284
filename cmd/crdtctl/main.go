// Copyright 2026 The CRDTEngine Authors
// This file is part of crdtengine.
//
// crdtengine is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// crdtengine is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with crdtengine. If not, see <http://www.gnu.org/licenses/>.

// crdtctl is a diagnostic CLI outside the core library (the core itself
// stays free of any CLI, filesystem, or environment-variable dependency). It decodes and pretty-prints change blobs and sync
// messages/state from files on disk, the same relationship Erigon's cmd/
// tools have to erigon-lib.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erigontech/crdtengine/change"
	"github.com/erigontech/crdtengine/sync"
)

func main() {
	var strict bool

	rootCmd := &cobra.Command{
		Use:   "crdtctl",
		Short: "Decode and inspect crdtengine change blobs and sync messages",
	}
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "reject unknown change columns instead of skipping them")

	decodeChangeCmd := &cobra.Command{
		Use:   "decode-change [file]",
		Short: "Decode a change blob and print its header, ops, and hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecodeChange(args[0], strict)
		},
	}

	decodeSyncCmd := &cobra.Command{
		Use:   "decode-sync [file]",
		Short: "Decode a sync message and print heads/need/have/changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecodeSync(args[0])
		},
	}

	decodeSyncStateCmd := &cobra.Command{
		Use:   "decode-sync-state [file]",
		Short: "Decode a persisted sync state blob and print sharedHeads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecodeSyncState(args[0])
		},
	}

	hashCmd := &cobra.Command{
		Use:   "hash [file]",
		Short: "Print the canonical hash of a change blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(args[0], strict)
		},
	}

	rootCmd.AddCommand(decodeChangeCmd, decodeSyncCmd, decodeSyncStateCmd, hashCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runDecodeChange(path string, strict bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := change.Decode(raw, change.DecodeOptions{StrictColumns: strict})
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	h, err := c.Hash()
	if err != nil {
		return err
	}
	fmt.Printf("actor:    %s\n", c.Actor)
	fmt.Printf("seq:      %d\n", c.Seq)
	fmt.Printf("startOp:  %d\n", c.StartOp)
	fmt.Printf("time:     %d\n", c.Time)
	fmt.Printf("message:  %q\n", c.Message)
	fmt.Printf("deps:     %d\n", len(c.Deps))
	for _, d := range c.Deps {
		fmt.Printf("  %s\n", d)
	}
	fmt.Printf("hash:     %s\n", h)
	fmt.Printf("ops:      %d\n", len(c.Ops))
	for i, op := range c.Ops {
		id := c.OpID(i)
		fmt.Printf("  [%d] %s action=%d obj=%s key=%s insert=%t pred=%d\n",
			i, id, op.Action, op.Obj, op.Key, op.Insert, len(op.Pred))
	}
	return nil
}

func runDecodeSync(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	msg, err := sync.DecodeMessage(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	fmt.Printf("heads:   %d\n", len(msg.Heads))
	for _, h := range msg.Heads {
		fmt.Printf("  %s\n", h)
	}
	fmt.Printf("need:    %d\n", len(msg.Need))
	for _, h := range msg.Need {
		fmt.Printf("  %s\n", h)
	}
	fmt.Printf("have:    %d\n", len(msg.Have))
	for i, hv := range msg.Have {
		fmt.Printf("  [%d] lastSync=%d bloomBytes=%d\n", i, len(hv.LastSync), len(hv.Bloom))
	}
	fmt.Printf("changes: %d\n", len(msg.Changes))
	for i, raw := range msg.Changes {
		c, err := change.Decode(raw, change.DecodeOptions{})
		if err != nil {
			fmt.Printf("  [%d] %d bytes (undecodable: %v)\n", i, len(raw), err)
			continue
		}
		h, _ := c.Hash()
		fmt.Printf("  [%d] %s actor=%s seq=%d ops=%d\n", i, h, c.Actor, c.Seq, len(c.Ops))
	}
	return nil
}

func runDecodeSyncState(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := sync.DecodeState(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	fmt.Printf("sharedHeads: %d\n", len(st.SharedHeads))
	for _, h := range st.SharedHeads {
		fmt.Printf("  %s\n", h)
	}
	return nil
}

func runHash(path string, strict bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := change.Decode(raw, change.DecodeOptions{StrictColumns: strict})
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	h, err := c.Hash()
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}
