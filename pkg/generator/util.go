package generator

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// seedToPtrInt32 は domain の *int64 を SDK 用の *int32 に変換するのだ。
// Imagen API は int32 を期待しているための調整なのだ。
func seedToPtrInt32(s *int64) *int32 {
	if s == nil {
		return nil
	}
	v := int32(*s)
	return &v
}

// dereferenceSeed は *int64 を安全に int64 に変換するのだ。
// nil の場合はデフォルト値（0）を返すのだよ。
func dereferenceSeed(s *int64) int64 {
	if s == nil {
		return 0
	}
	return *s
}

// IsSafeURL は、SSRF (Server-Side Request Forgery) 対策として URL を検証します。
// gs:// はストレージリーダー側で処理されるため常に許可し、それ以外は
// http/https かつプライベートIPやループバックアドレスをターゲットに
// していないことを確認します。
func IsSafeURL(rawURL string) (bool, error) {
	if strings.HasPrefix(rawURL, "gs://") {
		return true, nil
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false, fmt.Errorf("URLパース失敗: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return false, fmt.Errorf("不許可スキーム: %s", parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	var ips []net.IP

	// IPアドレス直接指定とホスト名の両方に対応する
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		resolvedIPs, err := net.LookupIP(host)
		if err != nil {
			return false, fmt.Errorf("ホスト '%s' の名前解決に失敗しました: %w", host, err)
		}
		ips = resolvedIPs
	}

	for _, ip := range ips {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return false, fmt.Errorf("制限されたネットワークへのアクセスを検知: %s", ip.String())
		}
	}

	return true, nil
}
