package rpc

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/controller"
	"github.com/canopy-network/dpos/lib"
	"github.com/cenkalti/backoff/v4"
)

// Client queries a running simulation over the query api
type Client struct {
	rpcURL  string
	client  http.Client
	retries uint64 // extra attempts when the server cannot be reached
}

func NewClient(rpcURL string, timeoutS int) *Client {
	return &Client{
		rpcURL:  strings.TrimSuffix(rpcURL, "/"),
		client:  http.Client{Timeout: time.Duration(timeoutS) * time.Second},
		retries: 3,
	}
}

func (c *Client) Version() (version *string, err lib.ErrorI) {
	version = new(string)
	err = c.get(VersionRouteName, version)
	return
}

func (c *Client) Health() (p *HealthResponse, err lib.ErrorI) {
	p = new(HealthResponse)
	err = c.get(HealthRouteName, p)
	return
}

func (c *Client) Accounts() (p lib.Accounts, err lib.ErrorI) {
	p = make(lib.Accounts)
	err = c.get(AccountsRouteName, &p)
	return
}

func (c *Client) Round() (p *bft.Status, err lib.ErrorI) {
	p = new(bft.Status)
	err = c.get(RoundRouteName, p)
	return
}

func (c *Client) LastRound() (p *bft.RoundResult, err lib.ErrorI) {
	p = new(bft.RoundResult)
	err = c.get(LastRoundRouteName, p)
	return
}

func (c *Client) Delegates() (p []*controller.DelegateStatus, err lib.ErrorI) {
	err = c.get(DelegatesRouteName, &p)
	return
}

func (c *Client) Delegate(id string) (p *controller.DelegateStatus, err lib.ErrorI) {
	p = new(controller.DelegateStatus)
	err = c.get(DelegateRouteName, p, id)
	return
}

func (c *Client) Clients() (p []*controller.ClientStatus, err lib.ErrorI) {
	err = c.get(ClientsRouteName, &p)
	return
}

// Block() fetches a committed block of a delegate; height 0 is the head
func (c *Client) Block(delegate string, height uint64) (p *lib.Block, err lib.ErrorI) {
	h := headHeightParameter
	if height != 0 {
		h = strconv.FormatUint(height, 10)
	}
	p = new(lib.Block)
	err = c.get(BlockRouteName, p, delegate, h)
	return
}

func (c *Client) StateDiff(delegate string) (p *StateDiffResponse, err lib.ErrorI) {
	p = new(StateDiffResponse)
	err = c.get(StateDiffRouteName, p, delegate)
	return
}

// get() requests the route, retrying with exponential backoff while the server is unreachable;
// a response with a bad status is not retried
func (c *Client) get(routeName string, ptr any, params ...string) lib.ErrorI {
	var resp *http.Response
	err := backoff.Retry(func() (e error) {
		resp, e = c.client.Get(c.url(routeName, params...))
		return
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries))
	if err != nil {
		return ErrGetRequest(err)
	}
	defer resp.Body.Close()
	return c.unmarshal(resp, ptr)
}

func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	return lib.UnmarshalJSON(bz, ptr)
}

// url() fills the route's path parameters in order
func (c *Client) url(routeName string, params ...string) string {
	parts := strings.Split(routePaths[routeName].Path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, colon) && len(params) != 0 {
			parts[i], params = url.PathEscape(params[0]), params[1:]
		}
	}
	return c.rpcURL + strings.Join(parts, "/")
}
