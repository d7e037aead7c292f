package buildsdk

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/buildsync/buildsync/internal/version"
	"github.com/shirou/gopsutil/v4/host"
)

const (
	HeaderUserAgent = "User-Agent"
	HeaderVersion   = "X-Buildsync-Version"
	HeaderDeviceID  = "X-Buildsync-Device-Id"
)

// UserAgent is `buildsync/0.3.0 (5e23a4; linux/amd64; ubuntu/24.04)`
var UserAgent = sync.OnceValue(func() string {
	parts := []string{version.Revision, runtime.GOOS + "/" + runtime.GOARCH}
	if p := platform(); p != "" {
		parts = append(parts, p)
	}
	return fmt.Sprintf("%s/%s (%s)", version.AppName, version.Version, strings.Join(parts, "; "))
})

func platform() string {
	info, err := host.Info()
	if err != nil || info == nil || info.Platform == "" {
		return ""
	}
	if info.PlatformVersion == "" {
		return info.Platform
	}
	return info.Platform + "/" + info.PlatformVersion
}
