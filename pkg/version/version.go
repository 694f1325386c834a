// Package version carries build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Name is the binary name reported in version output and the User-Agent
const Name = "gdrv-ingest"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() *Info {
	return &Info{
		Name:      Name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i *Info) String() string {
	return fmt.Sprintf("%s %s (%s) built %s", i.Name, i.Version, i.GitCommit, i.BuildTime)
}

// UserAgent identifies connector traffic in Drive audit logs
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", Name, Version, runtime.GOOS)
}
