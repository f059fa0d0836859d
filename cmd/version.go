package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/kamusis/imgsearch/cmd.version=..." (see Makefile).
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show imgsearch version and build information",
	Annotations: map[string]string{configOptional: "true"},
	RunE:        runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// buildInfo is what `imgsearch version` prints.
type buildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// resolveBuildInfo prefers the linker-set values and fills gaps from the
// module build info, so `go install` builds still report a version and commit.
func resolveBuildInfo(bi *debug.BuildInfo) buildInfo {
	out := buildInfo{Version: version, Commit: commit, BuildDate: buildDate}
	if bi == nil {
		return out
	}
	if out.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		out.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if out.Commit == "" {
				out.Commit = s.Value
			}
		case "vcs.time":
			if out.BuildDate == "" {
				out.BuildDate = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" && out.Commit != "" && out.Commit != commit {
				out.Commit += "-dirty"
			}
		}
	}
	return out
}

func runVersion(_ *cobra.Command, _ []string) error {
	bi, _ := debug.ReadBuildInfo()
	info := resolveBuildInfo(bi)
	fmt.Printf("Version:    %s\n", info.Version)
	fmt.Printf("Commit:     %s\n", emptyAsNA(info.Commit))
	fmt.Printf("Build Date: %s\n", emptyAsNA(info.BuildDate))
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
