package prover

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pufid/pufnode/types"
)

// Client implements the prover http client, used to delegate proof
// generation to a prover-server
type Client struct {
	url string
	c   *http.Client
}

// NewClient returns a new Client for the given proverURL
func NewClient(proverURL string) *Client {
	httpClient := &http.Client{}
	return &Client{
		url: proverURL,
		c:   httpClient,
	}
}

type errorMsg struct {
	Message string `json:"message"`
}

// GenProof sends the given ProofInputs to the prover-server to trigger the
// proof generation, returning the id to use to retrieve the proof later
func (c *Client) GenProof(pi *types.ProofInputs) (uint64, error) {
	jsonPI, err := json.Marshal(pi)
	if err != nil {
		return 0, err
	}
	resp, err := c.c.Post(c.url+"/proof", "application/json",
		bytes.NewBuffer(jsonPI))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode == http.StatusBadRequest {
		var errMsg errorMsg
		if err = json.Unmarshal(body, &errMsg); err != nil {
			return 0, err
		}
		return 0, errors.New(errMsg.Message)
	}

	var m map[string]uint64
	err = json.Unmarshal(body, &m)
	if err != nil {
		return 0, err
	}

	return m["id"], nil
}

// GetProof retrieves the ProofBundle generated for the given id. Returns an
// error if the proof is not ready yet.
func (c *Client) GetProof(id uint64) (*ProofBundle, error) {
	resp, err := c.c.Get(fmt.Sprintf("%s/proof/%d", c.url, id))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var errMsg errorMsg
		if err = json.Unmarshal(body, &errMsg); err != nil {
			return nil, err
		}
		return nil, errors.New(errMsg.Message)
	}

	var bundle ProofBundle
	if err = json.Unmarshal(body, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}
