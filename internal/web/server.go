// Package web serves the transaction service over HTTP/JSON.
package web

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	api "transactions/api/v1"
	"transactions/transaction"
	"transactions/transaction/options"
)

type Config struct {
	Service transaction.Service
	Logger  *zap.Logger
}

type handler struct {
	service transaction.Service
	logger  *zap.Logger
}

// NewApp builds the gateway. Serve it with app.Listener or exercise it with app.Test.
func NewApp(config *Config) (*fiber.App, error) {
	if config.Service == nil {
		return nil, errors.New("web: nil service")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{service: config.Service, logger: logger}

	app := fiber.New(fiber.Config{
		AppName:               "transactions",
		DisableStartupMessage: true,
		ErrorHandler:          h.renderError,
	})
	app.Use(recover.New())
	app.Use(h.accessLog)

	app.Get("/health", h.health)

	// fixed segments first so they aren't captured by /:id
	txns := app.Group("/transactions")
	txns.Post("/", h.create)
	txns.Get("/", h.list)
	txns.Get("/txn/:transactionId", h.getByTransactionID)
	txns.Get("/account/:accountNumber", h.listByAccount)
	txns.Get("/:transactionId/events", h.events)
	txns.Post("/:transactionId/execute", h.execute)
	txns.Get("/:id", h.get)

	return app, nil
}

func (h *handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "UP"})
}

func (h *handler) create(c *fiber.Ctx) error {
	var req api.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	t, err := h.service.Create(c.UserContext(), transaction.RequestFromAPI(&req))
	if err != nil && !failedInLedger(t, err) {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(transaction.ToAPI(t))
}

func (h *handler) execute(c *fiber.Ctx) error {
	t, err := h.service.Execute(c.UserContext(), c.Params("transactionId"))
	if err != nil && !failedInLedger(t, err) {
		return err
	}
	return c.JSON(transaction.ToAPI(t))
}

func (h *handler) get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "id must be a number")
	}
	t, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(transaction.ToAPI(t))
}

func (h *handler) getByTransactionID(c *fiber.Ctx) error {
	t, err := h.service.GetByTransactionID(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return err
	}
	return c.JSON(transaction.ToAPI(t))
}

func (h *handler) listByAccount(c *fiber.Ctx) error {
	ts, err := h.service.ListByAccount(c.UserContext(), c.Params("accountNumber"))
	if err != nil {
		return err
	}
	return c.JSON(transaction.ListToAPI(ts))
}

// list filters with ?status=&type= (comma separated), ?minAmount=&maxAmount=
// and ?from=&to= as RFC 3339 times
func (h *handler) list(c *fiber.Ctx) error {
	opts, err := listOptions(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ts, err := h.service.List(c.UserContext(), opts)
	if err != nil {
		return err
	}
	return c.JSON(transaction.ListToAPI(ts))
}

func (h *handler) events(c *fiber.Ctx) error {
	events, err := h.service.Events(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return err
	}
	return c.JSON(transaction.EventsToAPI(events))
}

func listOptions(c *fiber.Ctx) (*options.TransactionOptions, error) {
	opts := options.NewTransactionOptions().
		SetStatuses(split(strings.ToUpper(c.Query("status")))...).
		SetTypes(split(strings.ToUpper(c.Query("type")))...)

	if account := c.Query("account"); account != "" {
		opts.SetAccount(account)
	}

	var amount options.DecimalRange
	for param, bound := range map[string]**decimal.Decimal{"minAmount": &amount.Low, "maxAmount": &amount.High} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.New(param + " must be a decimal")
		}
		*bound = &d
	}
	if amount.Low != nil || amount.High != nil {
		opts.SetAmountRange(&amount)
	}

	var created options.TimeRange
	for param, bound := range map[string]**time.Time{"from": &created.Low, "to": &created.High} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New(param + " must be an RFC 3339 time")
		}
		*bound = &at
	}
	if created.Low != nil || created.High != nil {
		opts.SetTimeRange(&created)
	}

	return opts, nil
}

func split(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (h *handler) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// lets the error handler set the status before it is logged
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	h.logger.Info("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
