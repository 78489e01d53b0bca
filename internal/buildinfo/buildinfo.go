package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/wotrack/internal/buildinfo.CommitHash=..."
var (
	BuildTime  string
	CommitHash string
)

var startedAt = time.Now().UTC()

// Info describes the running binary
type Info struct {
	Commit    string    `json:"commit,omitempty"`
	BuildTime string    `json:"buildTime,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	Uptime    string    `json:"uptime"`
}

// Current returns build metadata and uptime
func Current() Info {
	return Info{
		Commit:    CommitHash,
		BuildTime: BuildTime,
		StartedAt: startedAt,
		Uptime:    time.Since(startedAt).Truncate(time.Second).String(),
	}
}
