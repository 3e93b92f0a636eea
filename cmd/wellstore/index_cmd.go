package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/petroworks/go-wellstore/fileindex"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newIndexCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan the workspace and report the indexed well files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if _, err = os.Stat(cfg.Workspace); err != nil {
				return fmt.Errorf("cannot open workspace: %w", err)
			}
			idx := fileindex.New(osfs.New(cfg.Workspace))
			res, err := idx.Build()
			if err != nil {
				return err
			}

			type projectInfo struct {
				wells int
				bytes uint64
			}
			projects := make(map[string]*projectInfo)
			for key, p := range idx.Snapshot() {
				project, _, _ := fileindex.SplitKey(key)
				info, ok := projects[project]
				if !ok {
					info = &projectInfo{}
					projects[project] = info
				}
				info.wells++
				if st, err := os.Stat(filepath.Join(cfg.Workspace, filepath.FromSlash(p))); err == nil {
					info.bytes += uint64(st.Size())
				}
			}
			names := make([]string, 0, len(projects))
			for name := range projects {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				info := projects[name]
				fmt.Fprintf(out, "%s\t%s wells\t%s\n", name, humanize.Comma(int64(info.wells)), humanize.Bytes(info.bytes))
			}
			fmt.Fprintf(out, "Indexed %s well files in %d projects\n", humanize.Comma(int64(res.Indexed)), len(names))
			for _, p := range res.Skipped {
				fmt.Fprintf(out, "Skipped %s\n", p)
			}
			return nil
		},
	}
}
