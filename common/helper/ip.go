package helper

import (
	"net"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// 回调来源校验用的一组IP工具。
// 网关的webhook除了HMAC签名外还要过IP白名单。

var cidrs []*net.IPNet

func init() {
	maxCidrBlocks := []string{
		"127.0.0.1/8",    // localhost
		"10.0.0.0/8",     // 24-bit block
		"172.16.0.0/12",  // 20-bit block
		"192.168.0.0/16", // 16-bit block
		"169.254.0.0/16", // link local address
		"::1/128",        // localhost IPv6
		"fc00::/7",       // unique local address IPv6
		"fe80::/10",      // link local address IPv6
	}

	cidrs = make([]*net.IPNet, len(maxCidrBlocks))
	for i, maxCidrBlock := range maxCidrBlocks {
		_, cidr, _ := net.ParseCIDR(maxCidrBlock)
		cidrs[i] = cidr
	}
}

// isPrivateAddress works by checking if the address is under private CIDR blocks.
func isPrivateAddress(address string) (bool, error) {
	ipAddress := net.ParseIP(address)
	if ipAddress == nil {
		return false, errors.New("address is not valid")
	}

	for i := range cidrs {
		if cidrs[i].Contains(ipAddress) {
			return true, nil
		}
	}

	return false, nil
}

// validateAndCleanIP 验证并清理IP地址
func validateAndCleanIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ""
	}

	// 过滤无效IP (0.0.0.0, ::, 等)
	if parsedIP.IsUnspecified() {
		return ""
	}

	return ip
}

// ClientIP 从请求头取真实来源IP：优先代理头里的第一个公网地址，
// 都没有就退回 RemoteAddr
func ClientIP(r *http.Request) string {
	headers := []string{"X-Real-Ip", "X-Client-Ip", "True-Client-Ip", "X-Forwarded-For"}
	for _, h := range headers {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for _, part := range strings.Split(v, ",") {
			ip := validateAndCleanIP(part)
			if ip == "" {
				continue
			}
			if private, err := isPrivateAddress(ip); err == nil && !private {
				return ip
			}
		}
	}

	remote := r.RemoteAddr
	if strings.ContainsRune(remote, ':') {
		if host, _, err := net.SplitHostPort(remote); err == nil {
			remote = host
		}
	}
	if ip := validateAndCleanIP(remote); ip != "" {
		return ip
	}
	return "unknown"
}

// IpInList 白名单匹配，条目支持单IP或CIDR段
func IpInList(ip string, ipList []string) bool {
	parsed := net.ParseIP(ip)
	for _, v := range ipList {
		v = strings.TrimSpace(v)
		if v == ip {
			return true
		}
		if parsed != nil && strings.ContainsRune(v, '/') {
			if _, cidr, err := net.ParseCIDR(v); err == nil && cidr.Contains(parsed) {
				return true
			}
		}
	}
	return false
}
