package wp

import (
	"context"
	"net/http"

	"github.com/example/vicere/internal/cpf"
)

// CPFExists asks the backend whether a customer is already registered with
// the given CPF. Punctuation is stripped before the lookup.
func (c *Client) CPFExists(ctx context.Context, doc string) (bool, error) {
	const op = "check cpf"
	resp, err := c.execute(ctx, apiRequest{
		op:          op,
		method:      http.MethodGet,
		url:         c.apiURL + "/verifica_cpf.class.php",
		queryParams: map[string]string{"cpf": cpf.Strip(doc)},
	})
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, statusError(op, resp.statusCode, "cpf lookup failed")
	}
	var body struct {
		Exists bool `json:"exists"`
	}
	if err := decode(op, resp, cpfExistsSchema, &body); err != nil {
		return false, err
	}
	return body.Exists, nil
}
