package checkout

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mmcdole/elevate/internal/domain"
)

var pageTemplate = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}} checkout</title>
<script src="{{.Script}}"></script>
</head>
<body>
<p id="status">Opening checkout...</p>
<script>
var base = window.location.pathname;
function post(path, body) {
  return fetch(base + path, {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify(body || {})
  });
}
var options = {{.Widget}};
options.handler = function (resp) {
  post("/success", resp).then(function () {
    document.getElementById("status").textContent = "Payment received. You can close this tab.";
  });
};
options.modal = {ondismiss: function () {
  post("/dismiss").then(function () {
    document.getElementById("status").textContent = "Payment cancelled. You can close this tab.";
  });
}};
new Razorpay(options).open();
</script>
</body>
</html>
`))

// widgetOptions is the option object handed to the checkout script
type widgetOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Prefill     Prefill `json:"prefill"`
	Theme       struct {
		Color string `json:"color,omitempty"`
	} `json:"theme"`
}

type pageData struct {
	Name   string
	Script string
	Widget widgetOptions
}

// bind registers the page routes of one checkout session.
func bind(g *echo.Group, s *session, logger *slog.Logger) {
	g.GET("", func(c echo.Context) error {
		w := widgetOptions{
			Key:         s.opts.Key,
			Amount:      s.opts.Amount,
			Currency:    s.opts.Currency,
			OrderID:     s.opts.OrderID,
			Name:        s.opts.Name,
			Description: s.opts.Description,
			Prefill:     s.opts.Prefill,
		}
		w.Theme.Color = s.opts.ThemeColor

		var buf bytes.Buffer
		if err := pageTemplate.Execute(&buf, pageData{Name: s.opts.Name, Script: s.script, Widget: w}); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		return c.HTML(http.StatusOK, buf.String())
	})

	g.POST("/success", func(c echo.Context) error {
		var res domain.PaymentResult
		if err := c.Bind(&res); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest).SetInternal(err)
		}
		if res.PaymentID == "" || res.Signature == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "incomplete payment result")
		}
		if res.OrderID == "" {
			res.OrderID = s.opts.OrderID
		}
		logger.Info("checkout succeeded", "orderID", res.OrderID)
		s.success(res)
		return c.NoContent(http.StatusNoContent)
	})

	g.POST("/dismiss", func(c echo.Context) error {
		logger.Info("checkout dismissed", "orderID", s.opts.OrderID)
		s.dismiss()
		return c.NoContent(http.StatusNoContent)
	})
}
