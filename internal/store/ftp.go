package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures an FTP mirror tier.
type FTPOptions struct {
	Addr     string
	Username string
	Password string
	Dir      string
	Timeout  time.Duration
}

// FTPBlob stores blobs as files on an FTP server, one connection per call.
type FTPBlob struct {
	opts FTPOptions
}

// NewFTP returns an FTP tier. Addr without a port defaults to 21 and empty
// credentials log in anonymously.
func NewFTP(opts FTPOptions) *FTPBlob {
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		opts.Addr = net.JoinHostPort(opts.Addr, "21")
	}
	if opts.Username == "" {
		opts.Username, opts.Password = "anonymous", "anonymous@"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPBlob{opts: opts}
}

func (f *FTPBlob) Name() string { return "ftp" }

func (f *FTPBlob) remote(key string) string {
	return path.Join("/", f.opts.Dir, key)
}

func (f *FTPBlob) dial(ctx context.Context) (*ftp.ServerConn, error) {
	zap.L().Debug("ftp: connecting", zap.String("addr", f.opts.Addr))

	conn, err := ftp.Dial(f.opts.Addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp: dial")
	}
	if err := conn.Login(f.opts.Username, f.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp: login")
	}
	return conn, nil
}

func (f *FTPBlob) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := f.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(f.remote(key))
	if err != nil {
		var te *textproto.Error
		if errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "ftp: retrieve %s", key)
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: read %s", key)
	}
	return data, nil
}

func (f *FTPBlob) Put(ctx context.Context, key string, data []byte) error {
	conn, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit() //nolint:errcheck

	return eris.Wrapf(conn.Stor(f.remote(key), bytes.NewReader(data)), "ftp: store %s", key)
}
