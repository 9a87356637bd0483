package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// RedirectGuardService はバックエンドが返した外部URLへのリダイレクト可否を検証する。
// 決済ページのURLをそのままブラウザに渡す前に使う。
type RedirectGuardService interface {
	// ValidateRedirect は遷移先として安全なURLでなければエラーを返す。
	// DNS解決は行わない静的な検証。
	ValidateRedirect(rawURL string) error
}

// allowedSchemes はリダイレクト先として許可するURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はリダイレクト先として拒否するネットワーク範囲。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（クラウドメタデータIPを含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// redirectGuard はRedirectGuardServiceの実装。
type redirectGuard struct {
	trusted map[string]struct{}
}

// NewRedirectGuard はRedirectGuardServiceの新しいインスタンスを生成する。
// trustedOriginsに指定したオリジン（例: http://localhost:5173）はアドレス範囲の検査を省略する。
// 開発環境のバックエンドやフロントエンドがlocalhostで動くため。
func NewRedirectGuard(trustedOrigins ...string) *redirectGuard {
	g := &redirectGuard{trusted: make(map[string]struct{})}
	for _, origin := range trustedOrigins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Host == "" {
			continue
		}
		g.trusted[originOf(parsed)] = struct{}{}
	}
	return g
}

// originOf はスキームとホスト（ポートを含む）を小文字で連結する。
func originOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// ValidateRedirect はスキーム・ホスト・ユーザー情報を検証する。
// javascript: などのスキーム、ユーザー情報付きURL、信頼済みでない内部アドレスは拒否する。
func (g *redirectGuard) ValidateRedirect(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}

	// https://shop.example.com@evil.example/ のような偽装を防ぐ
	if parsed.User != nil {
		return fmt.Errorf("userinfo is not allowed in redirect URL")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if _, ok := g.trusted[originOf(parsed)]; ok {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// isBlockedHostname はlocalhostおよびそのサブドメインを拒否する。
func isBlockedHostname(host string) bool {
	lower := strings.TrimSuffix(strings.ToLower(host), ".")
	return lower == "localhost" || strings.HasSuffix(lower, ".localhost")
}
