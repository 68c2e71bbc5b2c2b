package library

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/netip"
	"strconv"

	"library-client/application/http"
	"library-client/application/util/domain"
	"library-client/transport"
	"library-client/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrAlreadyLoggedIn  = errors.New("already logged in")
	ErrNotInLibrary     = errors.New("library not entered")
	ErrAlreadyInLibrary = errors.New("already inside the library")

	ErrNoReply        = errors.New("no message received from the server")
	ErrMalformedReply = errors.New("malformed server reply")
	ErrMissingCookie  = errors.New("session cookie not found in reply")
	ErrMissingToken   = errors.New("token not found in reply")
)

// ServerError is an {"error": ...} reply, or a failure status without one.
type ServerError struct {
	Status  string
	Message string
}

func (e *ServerError) Error() string { return e.Status + " <=> " + e.Message }

type Options struct {
	// Host is the server's IP address or domain name. It is also sent as the Host field.
	Host string
	Port uint16

	Exchange http.ExchangeOptions
}

var DefaultOptions = Options{
	Host:     "34.254.242.81",
	Port:     8080,
	Exchange: http.DefaultExchangeOptions,
}

type CombineAddrFunc func(ip netip.Addr, port uint16) transport.Addr

// Client runs library commands, one connection per command.
// It is not safe for concurrent use.
type Client struct {
	session Session

	opts Options

	logger *slog.Logger
	clock  clock.Clock

	exchanger  *http.Exchanger
	lookuper   domain.Lookuper
	connDialer transport.ConnDialer

	combineAddr CombineAddrFunc
}

func New(
	d transport.ConnDialer,
	lookuper domain.Lookuper,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Client {
	client := &Client{
		connDialer: d,
		lookuper:   lookuper,
		logger:     logger,
		clock:      clock,
		opts:       opts,
	}

	client.exchanger = http.NewExchanger(logger, clock, opts.Exchange)
	client.combineAddr = func(ip netip.Addr, port uint16) transport.Addr {
		return tcp.NewAddr(ip, port)
	}

	return client
}

func (c *Client) Session() Session { return c.session }

// Register creates an account. The reply carries no body on success.
func (c *Client) Register(ctx context.Context, creds Credentials) (status string, _ error) {
	if c.session.LoggedIn {
		return "", ErrAlreadyLoggedIn
	}

	res, err := c.postJSON(ctx, PathRegister, creds)
	if err != nil {
		return "", errors.Wrap(err, "register")
	}

	if err := checkReply(res); err != nil {
		return "", errors.Wrap(err, "register")
	}
	return res.StatusCode(), nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, creds Credentials) (status string, _ error) {
	if c.session.LoggedIn {
		return "", ErrAlreadyLoggedIn
	}

	res, err := c.postJSON(ctx, PathLogin, creds)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}

	if err := checkReply(res); err != nil {
		return "", errors.Wrap(err, "login")
	}

	cookie, ok := ExtractSessionCookie(res.Raw()[:max(res.HeaderEnd(), 0)])
	if !ok {
		return "", errors.Wrap(ErrMissingCookie, "login")
	}

	c.session = Session{LoggedIn: true, Cookie: cookie}
	return res.StatusCode(), nil
}

// Logout ends the session. The local session is cleared only when the
// server accepts the request.
func (c *Client) Logout(ctx context.Context) (status string, _ error) {
	if !c.session.LoggedIn {
		return "", ErrNotLoggedIn
	}

	res, err := c.do(ctx, http.Request{
		Method:  http.MethodGet,
		Path:    PathLogout,
		Cookies: c.session.cookies(),
	})
	if err != nil {
		return "", errors.Wrap(err, "logout")
	}

	if err := checkReply(res); err != nil {
		return "", errors.Wrap(err, "logout")
	}

	c.session = Session{}
	return res.StatusCode(), nil
}

// EnterLibrary requests library access and stores the granted token.
func (c *Client) EnterLibrary(ctx context.Context) (status string, _ error) {
	switch {
	case !c.session.LoggedIn:
		return "", ErrNotLoggedIn
	case c.session.InLibrary:
		return "", ErrAlreadyInLibrary
	}

	res, err := c.do(ctx, http.Request{
		Method:  http.MethodGet,
		Path:    PathAccess,
		Cookies: c.session.cookies(),
	})
	if err != nil {
		return "", errors.Wrap(err, "enter library")
	}

	var reply struct {
		Token string `json:"token"`
	}
	if err := decodeReply(res, &reply); err != nil {
		return "", errors.Wrap(err, "enter library")
	}
	if reply.Token == "" {
		return "", errors.Wrap(ErrMissingToken, "enter library")
	}

	c.session.InLibrary = true
	c.session.Token = reply.Token
	return res.StatusCode(), nil
}

// GetBooks lists the books in the library. Only ID and Title are filled in.
func (c *Client) GetBooks(ctx context.Context) ([]Book, error) {
	if err := c.requireLibrary(); err != nil {
		return nil, err
	}

	res, err := c.do(ctx, http.Request{
		Method: http.MethodGet,
		Path:   PathBooks,
		Token:  c.session.Token,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get books")
	}

	var books []Book
	if err := decodeReply(res, &books); err != nil {
		return nil, errors.Wrap(err, "get books")
	}
	return books, nil
}

// GetBook fetches one book. id must be a decimal number.
func (c *Client) GetBook(ctx context.Context, id string) (Book, error) {
	if err := c.requireLibrary(); err != nil {
		return Book{}, err
	}

	n, err := ParseNumber("book id", id)
	if err != nil {
		return Book{}, err
	}

	res, err := c.do(ctx, http.Request{
		Method: http.MethodGet,
		Path:   PathBooks + strconv.Itoa(n),
		Token:  c.session.Token,
	})
	if err != nil {
		return Book{}, errors.Wrap(err, "get book")
	}

	var book Book
	if err := decodeReply(res, &book); err != nil {
		return Book{}, errors.Wrap(err, "get book")
	}
	return book, nil
}

func (c *Client) AddBook(ctx context.Context, book Book) (status string, _ error) {
	if err := c.requireLibrary(); err != nil {
		return "", err
	}

	book.ID = 0
	body, err := json.Marshal(book)
	if err != nil {
		return "", errors.Wrap(err, "encoding book")
	}

	res, err := c.do(ctx, http.Request{
		Method:      http.MethodPost,
		Path:        PathBooks,
		Token:       c.session.Token,
		ContentType: ContentTypeJSON,
		Body:        body,
	})
	if err != nil {
		return "", errors.Wrap(err, "add book")
	}

	if err := checkReply(res); err != nil {
		return "", errors.Wrap(err, "add book")
	}
	return res.StatusCode(), nil
}

// DeleteBook removes one book. id must be a decimal number.
func (c *Client) DeleteBook(ctx context.Context, id string) (status string, _ error) {
	if err := c.requireLibrary(); err != nil {
		return "", err
	}

	n, err := ParseNumber("book id", id)
	if err != nil {
		return "", err
	}

	res, err := c.do(ctx, http.Request{
		Method: http.MethodDelete,
		Path:   PathBooks + strconv.Itoa(n),
		Token:  c.session.Token,
	})
	if err != nil {
		return "", errors.Wrap(err, "delete book")
	}

	if err := checkReply(res); err != nil {
		return "", errors.Wrap(err, "delete book")
	}
	return res.StatusCode(), nil
}

func (c *Client) requireLibrary() error {
	switch {
	case !c.session.LoggedIn:
		return ErrNotLoggedIn
	case !c.session.InLibrary:
		return ErrNotInLibrary
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding payload")
	}

	return c.do(ctx, http.Request{
		Method:      http.MethodPost,
		Path:        path,
		ContentType: ContentTypeJSON,
		Body:        body,
	})
}

// do runs one exchange over a fresh connection.
func (c *Client) do(ctx context.Context, req http.Request) (*http.Response, error) {
	req.Host = c.opts.Host

	logger := c.logger.With(slog.String("exchange", uuid.NewString()))

	addr, err := c.convertToAddr(ctx, c.opts.Host, c.opts.Port)
	if err != nil {
		return nil, errors.Wrap(err, "converting host to addr")
	}

	conn, err := c.connDialer.Dial(ctx, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", addr)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("closing connection", slog.String("error", err.Error()))
		}
	}()

	logger.Debug("connected",
		slog.String("local", conn.LocalAddr().String()),
		slog.String("remote", conn.RemoteAddr().String()))

	res, err := c.exchanger.Exchange(ctx, conn, req)
	if err != nil {
		logger.Debug("exchange failed", slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("exchange finished",
		slog.String("method", string(req.Method)),
		slog.String("path", req.Path),
		slog.String("status", res.StatusCode()))

	return res, nil
}

func (c *Client) convertToAddr(ctx context.Context, host string, port uint16) (transport.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return c.combineAddr(addr, port), nil
	}

	// Host is a domain name. Resolve it to the ip address.
	addrs, err := c.lookuper.LookupIP(ctx, host)
	if err != nil {
		if errors.Is(err, domain.ErrDomainNotFound) {
			return nil, errors.Wrapf(transport.ErrHostNotFound, "%s: %v", host, err)
		}
		return nil, errors.Wrapf(err, "lookup for host(%s) failed", host)
	}
	if len(addrs) == 0 {
		return nil, errors.Wrapf(transport.ErrHostNotFound, "%s: no addresses", host)
	}

	// Lets simply use the first address.
	return c.combineAddr(addrs[0], port), nil
}

// checkReply accepts an empty body, or any body not carrying an error,
// as long as the status is not a failure.
func checkReply(res *http.Response) error {
	if len(res.Raw()) == 0 {
		return ErrNoReply
	}

	body := res.Body()
	if len(body) > 0 {
		var reply struct {
			Error *string `json:"error"`
		}
		if err := json.Unmarshal(body, &reply); err == nil && reply.Error != nil {
			return &ServerError{Status: res.StatusCode(), Message: *reply.Error}
		}
	}

	if st, err := res.Status(); err == nil && st.IsFailure() {
		msg := string(body)
		if msg == "" {
			msg = st.Reason
		}
		if msg == "" {
			msg = "request failed"
		}
		return &ServerError{Status: res.StatusCode(), Message: msg}
	}
	return nil
}

// decodeReply runs checkReply and then decodes a mandatory JSON body into v.
func decodeReply(res *http.Response, v any) error {
	if err := checkReply(res); err != nil {
		return err
	}

	body := res.Body()
	if len(body) == 0 {
		return errors.Wrapf(ErrMalformedReply, "status %s with empty body", res.StatusCode())
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(ErrMalformedReply, "status %s: %v", res.StatusCode(), err)
	}
	return nil
}
