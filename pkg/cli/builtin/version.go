package builtin

import (
	"context"
	"runtime"

	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/nxshell/nxshell/pkg/output"
)

// VersionInfo describes the shell binary and, when connected, the server.
type VersionInfo struct {
	ClientVersion string `json:"client_version"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	Server        string `json:"server,omitempty"`
	User          string `json:"user,omitempty"`
}

func (c *commands) versionCommand() *cli.Descriptor {
	desc := &cli.Descriptor{
		Name:    "version",
		Usage:   "version [-o format]",
		Help:    "Print the version of nxshell and the server it is connected to.",
		Options: []cli.OptionSpec{outputOption},
	}
	desc.Handler = func(ctx context.Context, env *cli.Env, args *cli.ParsedArgs) error {
		p, err := printer(desc, env, args)
		if err != nil {
			return err
		}

		info := &VersionInfo{
			ClientVersion: c.opts.Version,
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		}
		if info.ClientVersion == "" {
			info.ClientVersion = "dev"
		}
		if env.Session != nil && env.Session.Connected() {
			info.Server = env.Session.Host()
			info.User = env.Session.Identity()
		}

		if p.Format() != output.FormatPretty {
			return p.Value(info)
		}
		p.Printf("nxshell version: %s\n", info.ClientVersion)
		p.Printf("Go version:      %s\n", info.GoVersion)
		p.Printf("Platform:        %s\n", info.Platform)
		if info.Server != "" {
			p.Printf("Server:          %s\n", info.Server)
			p.Printf("User:            %s\n", info.User)
		}
		return nil
	}
	return desc
}
