package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kazuvin/teto/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the TTS cache",
	}
	cmd.AddCommand(newCacheInfoCmd(), newCacheClearCmd())
	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location, entry count and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.Open("")
			if err != nil {
				return err
			}
			info, err := c.Info()
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d entries, %.2f MB\n",
				info.Root, info.EntryCount, float64(info.BytesUsed)/(1024*1024))
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached TTS audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.Open("")
			if err != nil {
				return err
			}
			removed, err := c.Clear(olderThan)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entrie(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only remove entries older than this (e.g. 720h)")
	return cmd
}
