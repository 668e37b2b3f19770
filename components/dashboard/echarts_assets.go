package dashboard

import (
	"os"
	"strings"
)

const (
	// DefaultEChartsAssetsHost serves the ECharts runtime and themes.
	DefaultEChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
	// envEChartsCDN overrides the default assets host (e.g., to point at a self-hosted bucket).
	envEChartsCDN = "ADMIN_ECHARTS_CDN"
)

// ResolveEChartsAssetsHost picks the configured host, then the environment
// override, then the public default. The result always ends with a slash.
func ResolveEChartsAssetsHost(configured string) string {
	if host := strings.TrimSpace(configured); host != "" {
		return ensureTrailingSlash(host)
	}
	if host := strings.TrimSpace(os.Getenv(envEChartsCDN)); host != "" {
		return ensureTrailingSlash(host)
	}
	return DefaultEChartsAssetsHost
}

// EChartsScripts lists the script URLs a page needs for theme.
func EChartsScripts(host, theme string) []string {
	host = ResolveEChartsAssetsHost(host)
	scripts := []string{host + "echarts.min.js"}
	if theme != "" && theme != "white" && theme != "light" {
		scripts = append(scripts, host+"themes/"+theme+".js")
	}
	return scripts
}

func ensureTrailingSlash(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}
