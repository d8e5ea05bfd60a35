package meroshare

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ipo_applier/internal/broker"
	"ipo_applier/internal/models"
)

// maxIssuePages bounds paging through the applicable-issue listing.
const maxIssuePages = 20

// ApplicableIssues fetches the issues currently open to the account, in the
// order MeroShare lists them.
func (c *Client) ApplicableIssues(ctx context.Context, session *broker.Session) ([]models.Offering, error) {
	if session == nil {
		return nil, ErrSessionExpired
	}

	var offerings []models.Offering

	for page := 1; page <= maxIssuePages; page++ {
		var resp issueResponse
		r := request{
			method: http.MethodPost,
			path:   "/companyShare/applicableIssue/",
			body:   newIssueRequest(page, issuePageSize),
		}
		if err := c.getJSON(ctx, r, session, &resp, "applicable issues"); err != nil {
			return nil, err
		}

		for _, issue := range resp.Object {
			offerings = append(offerings, toOffering(issue))
		}

		if len(resp.Object) == 0 || len(offerings) >= resp.TotalCount {
			break
		}
	}

	c.logger.Debug("Fetched applicable issues",
		zap.String("account", session.AccountName),
		zap.Int("count", len(offerings)),
	)
	return offerings, nil
}

func toOffering(issue applicableIssue) models.Offering {
	return models.Offering{
		CompanyShareID: issue.CompanyShareID,
		CompanyName:    strings.TrimSpace(issue.CompanyName),
		Scrip:          strings.TrimSpace(issue.Scrip),
		ShareTypeName:  issue.ShareTypeName,
		ShareGroupName: issue.ShareGroupName,
		SubGroup:       issue.SubGroup,
		AlreadyActed:   bool(issue.Action),
	}
}
