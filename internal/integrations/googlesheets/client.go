package googlesheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// NewSheetsService builds a Sheets client from service account credentials.
func NewSheetsService(ctx context.Context, credentialsJSON []byte) (*sheets.Service, error) {
	credentials, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("could not load google credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, credentials.TokenSource)
	service, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("could not create google sheets client: %w", err)
	}

	return service, nil
}

// sheetsValues writes through the real Sheets API.
type sheetsValues struct {
	service *sheets.Service
}

func (v *sheetsValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (int64, error) {
	resp, err := v.service.Spreadsheets.Values.
		Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return 0, err
	}

	return resp.UpdatedCells, nil
}

func (v *sheetsValues) Clear(ctx context.Context, spreadsheetID, clearRange string) error {
	_, err := v.service.Spreadsheets.Values.
		Clear(spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}
