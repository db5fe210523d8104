package gmo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cartloom/gmo-payment-service/internal/domain"
	"github.com/cartloom/gmo-payment-service/internal/domain/ports"
	pkgerrors "github.com/cartloom/gmo-payment-service/pkg/errors"
	"github.com/cartloom/gmo-payment-service/pkg/observability"
)

// Gateway endpoint paths. Every operation is a form-encoded POST.
const (
	pathEntryTran   = "/payment/EntryTran.idPass"
	pathExecTran    = "/payment/ExecTran.idPass"
	pathChangeTran  = "/payment/ChangeTran.idPass"
	pathAlterTran   = "/payment/AlterTran.idPass"
	pathSearchTrade = "/payment/SearchTrade.idPass"
	pathSaveMember  = "/payment/SaveMember.idPass"
	pathSaveCard    = "/payment/SaveCard.idPass"
	pathDeleteCard  = "/payment/DeleteCard.idPass"
	pathSearchCard  = "/payment/SearchCard.idPass"
)

// Credentials holds the two credential pairs the gateway requires: the site
// pair scopes the merchant site (member/card operations), the shop pair
// scopes the store within it (transaction operations).
type Credentials struct {
	SiteID   string
	SitePass string
	ShopID   string
	ShopPass string
}

// Client implements ports.PaymentGateway against the GMO multi-payment API.
// It performs zero retries: retrying a charge-mutating call blindly risks
// double-authorization, so retry policy stays with the caller.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient ports.HTTPClient
	logger     ports.Logger
}

// NewClient creates a new gateway client with dependency injection
func NewClient(creds Credentials, baseURL string, httpClient ports.HTTPClient, logger ports.Logger) *Client {
	return &Client{
		creds:      creds,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithDefaults creates a new gateway client with a default HTTP client
func NewClientWithDefaults(creds Credentials, baseURL string, logger ports.Logger) *Client {
	return NewClient(creds, baseURL, &http.Client{Timeout: 30 * time.Second}, logger)
}

// Entry implements ports.PaymentGateway.Entry
func (c *Client) Entry(ctx context.Context, orderID string, amount int64) (*ports.EntryResult, error) {
	if orderID == "" {
		return nil, pkgerrors.NewValidationError("order_id", "order ID is required")
	}
	if amount <= 0 {
		return nil, pkgerrors.NewValidationError("amount", "amount must be positive")
	}

	form := url.Values{}
	form.Set("ShopID", c.creds.ShopID)
	form.Set("ShopPass", c.creds.ShopPass)
	form.Set("OrderID", orderID)
	form.Set("JobCd", string(domain.JobAuth))
	form.Set("Amount", strconv.FormatInt(amount, 10))

	vals, err := c.post(ctx, pathEntryTran, form)
	if err != nil {
		return nil, err
	}

	accessID := vals.Get("AccessID")
	accessPass := vals.Get("AccessPass")
	if accessID == "" || accessPass == "" {
		return nil, pkgerrors.NewPaymentError("MALFORMED_RESPONSE",
			"gateway did not return an access pair", pkgerrors.CategorySystemError, false)
	}

	return &ports.EntryResult{AccessID: accessID, AccessPass: accessPass}, nil
}

// Execute implements ports.PaymentGateway.Execute
func (c *Client) Execute(ctx context.Context, req *ports.ExecuteRequest) (*ports.ExecuteResult, error) {
	if req.AccessID == "" || req.AccessPass == "" {
		return nil, pkgerrors.NewValidationError("access_pair", "access ID and pass are required")
	}
	if req.MemberID == "" {
		return nil, pkgerrors.NewValidationError("member_id", "member ID is required")
	}

	form := url.Values{}
	form.Set("AccessID", req.AccessID)
	form.Set("AccessPass", req.AccessPass)
	form.Set("OrderID", req.OrderID)
	form.Set("Method", "1")
	form.Set("SiteID", c.creds.SiteID)
	form.Set("SitePass", c.creds.SitePass)
	form.Set("MemberID", req.MemberID)
	form.Set("CardSeq", strconv.Itoa(req.CardSeq))

	vals, err := c.post(ctx, pathExecTran, form)
	if err != nil {
		return nil, err
	}

	return &ports.ExecuteResult{
		Approve:  vals.Get("Approve"),
		TranID:   vals.Get("TranID"),
		TranDate: vals.Get("TranDate"),
		Forward:  vals.Get("Forward"),
	}, nil
}

// Change implements ports.PaymentGateway.Change
func (c *Client) Change(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error {
	if amount <= 0 {
		return pkgerrors.NewValidationError("amount", "amount must be positive")
	}

	form := url.Values{}
	form.Set("AccessID", accessID)
	form.Set("AccessPass", accessPass)
	form.Set("JobCd", string(jobCd))
	form.Set("Amount", strconv.FormatInt(amount, 10))

	_, err := c.post(ctx, pathChangeTran, form)
	return err
}

// Alter implements ports.PaymentGateway.Alter
func (c *Client) Alter(ctx context.Context, accessID, accessPass string, jobCd domain.JobCd, amount int64) error {
	form := url.Values{}
	form.Set("AccessID", accessID)
	form.Set("AccessPass", accessPass)
	form.Set("JobCd", string(jobCd))
	if amount > 0 {
		form.Set("Amount", strconv.FormatInt(amount, 10))
	}

	_, err := c.post(ctx, pathAlterTran, form)
	return err
}

// SearchTrade implements ports.PaymentGateway.SearchTrade
func (c *Client) SearchTrade(ctx context.Context, orderID string) (*ports.TradeInfo, error) {
	form := url.Values{}
	form.Set("ShopID", c.creds.ShopID)
	form.Set("ShopPass", c.creds.ShopPass)
	form.Set("OrderID", orderID)

	vals, err := c.post(ctx, pathSearchTrade, form)
	if err != nil {
		return nil, err
	}

	var amount int64
	if raw := vals.Get("Amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, pkgerrors.NewPaymentError("MALFORMED_RESPONSE",
				fmt.Sprintf("unparsable trade amount %q", raw), pkgerrors.CategorySystemError, false)
		}
	}

	return &ports.TradeInfo{
		OrderID:    orderID,
		Status:     domain.TradeStatus(vals.Get("Status")),
		JobCd:      vals.Get("JobCd"),
		Amount:     amount,
		AccessID:   vals.Get("AccessID"),
		AccessPass: vals.Get("AccessPass"),
	}, nil
}

// SaveMember implements ports.PaymentGateway.SaveMember
func (c *Client) SaveMember(ctx context.Context, memberID, name string) error {
	if memberID == "" {
		return pkgerrors.NewValidationError("member_id", "member ID is required")
	}

	form := url.Values{}
	form.Set("SiteID", c.creds.SiteID)
	form.Set("SitePass", c.creds.SitePass)
	form.Set("MemberID", memberID)
	if name != "" {
		form.Set("MemberName", name)
	}

	_, err := c.post(ctx, pathSaveMember, form)
	return err
}

// SaveCard implements ports.PaymentGateway.SaveCard
func (c *Client) SaveCard(ctx context.Context, memberID, token string) (int, error) {
	if token == "" {
		return 0, pkgerrors.NewValidationError("token", "card token is required")
	}

	form := url.Values{}
	form.Set("SiteID", c.creds.SiteID)
	form.Set("SitePass", c.creds.SitePass)
	form.Set("MemberID", memberID)
	form.Set("SeqMode", "0")
	form.Set("Token", token)

	vals, err := c.post(ctx, pathSaveCard, form)
	if err != nil {
		return 0, err
	}

	cardSeq, err := strconv.Atoi(vals.Get("CardSeq"))
	if err != nil {
		return 0, pkgerrors.NewPaymentError("MALFORMED_RESPONSE",
			fmt.Sprintf("unparsable card seq %q", vals.Get("CardSeq")), pkgerrors.CategorySystemError, false)
	}
	return cardSeq, nil
}

// DeleteCard implements ports.PaymentGateway.DeleteCard
func (c *Client) DeleteCard(ctx context.Context, memberID string, cardSeq int) error {
	form := url.Values{}
	form.Set("SiteID", c.creds.SiteID)
	form.Set("SitePass", c.creds.SitePass)
	form.Set("MemberID", memberID)
	form.Set("SeqMode", "0")
	form.Set("CardSeq", strconv.Itoa(cardSeq))

	_, err := c.post(ctx, pathDeleteCard, form)
	return err
}

// SearchCard implements ports.PaymentGateway.SearchCard
func (c *Client) SearchCard(ctx context.Context, memberID string) ([]domain.Card, error) {
	form := url.Values{}
	form.Set("SiteID", c.creds.SiteID)
	form.Set("SitePass", c.creds.SitePass)
	form.Set("MemberID", memberID)
	form.Set("SeqMode", "0")

	vals, err := c.post(ctx, pathSearchCard, form)
	if err != nil {
		return nil, err
	}

	// Multi-card responses are pipe-separated, field by field.
	seqs := splitMulti(vals.Get("CardSeq"))
	nos := splitMulti(vals.Get("CardNo"))
	expires := splitMulti(vals.Get("Expire"))
	holders := splitMulti(vals.Get("HolderName"))
	deleted := splitMulti(vals.Get("DeleteFlag"))

	cards := make([]domain.Card, 0, len(seqs))
	for i, rawSeq := range seqs {
		if rawSeq == "" {
			continue
		}
		if i < len(deleted) && deleted[i] == "1" {
			continue
		}
		seq, err := strconv.Atoi(rawSeq)
		if err != nil {
			return nil, pkgerrors.NewPaymentError("MALFORMED_RESPONSE",
				fmt.Sprintf("unparsable card seq %q", rawSeq), pkgerrors.CategorySystemError, false)
		}
		card := domain.Card{CardSeq: seq}
		if i < len(nos) {
			card.CardNo = nos[i]
		}
		if i < len(expires) {
			card.Expire = expires[i]
		}
		if i < len(holders) {
			card.HolderName = holders[i]
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// post issues one form-encoded request and decodes the form-encoded
// response. A response carrying ErrCode is a gateway rejection and is
// surfaced as a categorized PaymentError with the gateway's codes intact.
func (c *Client) post(ctx context.Context, path string, form url.Values) (url.Values, error) {
	operation := operationName(path)
	start := time.Now()

	vals, err := c.doPost(ctx, path, form)
	observability.RecordGatewayRequest(operation, start, err)

	if err != nil && c.logger != nil {
		c.logger.Warn("gateway request failed",
			ports.String("operation", operation),
			ports.Err(err),
		)
	}
	return vals, err
}

func (c *Client) doPost(ctx context.Context, path string, form url.Values) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.NewPaymentError("NETWORK_ERROR",
			"failed to reach payment gateway", pkgerrors.CategoryNetworkError, true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewPaymentError("NETWORK_ERROR",
			"failed to read gateway response", pkgerrors.CategoryNetworkError, true)
	}

	if resp.StatusCode >= 500 {
		return nil, pkgerrors.NewPaymentError("GATEWAY_UNAVAILABLE",
			"payment gateway error", pkgerrors.CategorySystemError, true)
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.NewPaymentError("REQUEST_ERROR",
			"invalid request to payment gateway", pkgerrors.CategoryInvalidRequest, false)
	}

	vals, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, pkgerrors.NewPaymentError("MALFORMED_RESPONSE",
			"unparsable gateway response", pkgerrors.CategorySystemError, false)
	}

	if errCode := vals.Get("ErrCode"); errCode != "" {
		errInfo := vals.Get("ErrInfo")
		detail := GetErrInfoDetail(firstCode(errInfo))
		return nil, detail.ToPaymentError(errCode + "/" + errInfo)
	}

	return vals, nil
}

func operationName(path string) string {
	name := strings.TrimPrefix(path, "/payment/")
	return strings.TrimSuffix(name, ".idPass")
}

func firstCode(errInfo string) string {
	if i := strings.IndexByte(errInfo, '|'); i >= 0 {
		return errInfo[:i]
	}
	return errInfo
}

func splitMulti(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, "|")
}
