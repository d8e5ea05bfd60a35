// Package meroshare provides a client for the CDSC MeroShare web backend.
package meroshare

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleBool handles JSON fields that can be a boolean, a string or null.
// MeroShare reports the applicable-issue "action" as a string such as "edit"
// or "inProcess" once the account has acted, and omits it otherwise.
type FlexibleBool bool

// UnmarshalJSON implements custom unmarshaling for FlexibleBool.
func (f *FlexibleBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexibleBool(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleBool(strings.TrimSpace(s) != "")
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}

	// null and anything else count as "no action"
	*f = false
	return nil
}

// capital is one depository participant from /capital/.
type capital struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// authRequest is the login body for /auth/.
type authRequest struct {
	ClientID int64  `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponse is the login answer. The token itself comes in the
// Authorization response header.
type authResponse struct {
	StatusCode      int    `json:"statusCode"`
	Message         string `json:"message"`
	PasswordExpired bool   `json:"passwordExpired"`
	AccountExpired  bool   `json:"accountExpired"`
	DematExpired    bool   `json:"dematExpired"`
}

// ownDetail is the account profile from /ownDetail/.
type ownDetail struct {
	Name       string `json:"name"`
	Demat      string `json:"demat"`
	BOID       string `json:"boid"`
	ClientCode string `json:"clientCode"`
}

type filterField struct {
	Key   string `json:"key"`
	Alias string `json:"alias"`
	Value string `json:"value,omitempty"`
}

type filterDate struct {
	Key       string `json:"key"`
	Condition string `json:"condition"`
	Alias     string `json:"alias"`
	Value     string `json:"value"`
}

// issueRequest is the body for /companyShare/applicableIssue/.
type issueRequest struct {
	FilterFieldParams       []filterField `json:"filterFieldParams"`
	Page                    int           `json:"page"`
	Size                    int           `json:"size"`
	SearchRoleViewConstants string        `json:"searchRoleViewConstants"`
	FilterDateParams        []filterDate  `json:"filterDateParams"`
}

func newIssueRequest(page, size int) issueRequest {
	return issueRequest{
		FilterFieldParams: []filterField{
			{Key: "companyIssue.companyISIN.script", Alias: "Scrip"},
			{Key: "companyIssue.companyISIN.company.name", Alias: "Company Name"},
			{Key: "companyIssue.assignedToClient.name", Alias: "Issue Manager"},
		},
		Page:                    page,
		Size:                    size,
		SearchRoleViewConstants: "VIEW_APPLICABLE_SHARE",
		FilterDateParams: []filterDate{
			{Key: "minIssueOpenDate"},
			{Key: "maxIssueCloseDate"},
		},
	}
}

// applicableIssue is one record of the applicable-issue listing.
type applicableIssue struct {
	CompanyShareID int64        `json:"companyShareId"`
	SubGroup       string       `json:"subGroup"`
	Scrip          string       `json:"scrip"`
	CompanyName    string       `json:"companyName"`
	ShareTypeName  string       `json:"shareTypeName"`
	ShareGroupName string       `json:"shareGroupName"`
	StatusName     string       `json:"statusName"`
	Action         FlexibleBool `json:"action"`
	IssueOpenDate  string       `json:"issueOpenDate,omitempty"`
	IssueCloseDate string       `json:"issueCloseDate,omitempty"`
}

type issueResponse struct {
	Object     []applicableIssue `json:"object"`
	TotalCount int               `json:"totalCount"`
}

// bank is one disbursing bank from /bank/.
type bank struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// bankAccount is one linked account from /bank/{id}.
type bankAccount struct {
	ID              int64  `json:"id"`
	AccountBranchID int64  `json:"accountBranchId"`
	AccountNumber   string `json:"accountNumber"`
	AccountTypeID   int64  `json:"accountTypeId"`
	AccountTypeName string `json:"accountTypeName"`
	BranchName      string `json:"branchName"`
}

// applyRequest is the body for /applicantForm/share/apply.
type applyRequest struct {
	Demat           string `json:"demat"`
	BOID            string `json:"boid"`
	AccountNumber   string `json:"accountNumber"`
	CustomerID      int64  `json:"customerId"`
	AccountBranchID int64  `json:"accountBranchId"`
	AccountTypeID   int64  `json:"accountTypeId"`
	AppliedKitta    string `json:"appliedKitta"`
	CRNNumber       string `json:"crnNumber"`
	TransactionPIN  string `json:"transactionPIN"`
	CompanyShareID  string `json:"companyShareId"`
	BankID          string `json:"bankId"`
}

// messageResponse is the generic {message,status} body MeroShare returns.
type messageResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
