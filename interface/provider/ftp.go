package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/eokit/satctl/service"
)

// FTPFetcher downloads assets from an ftp server. Port 990 switches to
// implicit TLS.
type FTPFetcher struct {
	User     string
	Password string
}

// Name implements Fetcher
func (f *FTPFetcher) Name() string {
	return "ftp"
}

// Schemes implements Fetcher
func (f *FTPFetcher) Schemes() []string {
	return []string{"ftp", "ftps"}
}

// Fetch implements Fetcher
func (f *FTPFetcher) Fetch(ctx context.Context, href, localPath string) error {
	u, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("FTPFetcher.Parse: %w", err)
	}
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	ftpOption := []ftp.DialOption{ftp.DialWithContext(ctx), ftp.DialWithTimeout(5 * time.Second)}
	if u.Scheme == "ftps" || u.Port() == "990" {
		ftpOption = append(ftpOption, ftp.DialWithTLS(&tls.Config{InsecureSkipVerify: true}))
	}
	c, err := ftp.Dial(host, ftpOption...)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("FTPFetcher.Dial: %w", err))
	}
	defer c.Quit()

	user, pword := f.User, f.Password
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pword = p
		}
	}
	if user == "" {
		user, pword = "anonymous", "anonymous"
	}
	if err = c.Login(user, pword); err != nil {
		return fmt.Errorf("FTPFetcher.Login: %w", err)
	}

	r, err := c.Retr(u.Path)
	if err != nil {
		return service.MakeTemporary(fmt.Errorf("FTPFetcher.Retr[%s]: %w", u.Path, err))
	}
	defer r.Close()

	if err := writeFileAtomic(r, localPath); err != nil {
		return fmt.Errorf("FTPFetcher.%w", err)
	}
	return nil
}
