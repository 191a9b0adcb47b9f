package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minNameLength = 2

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name, err := s.normalizeName(req.Name)
	if err != nil {
		return domain.Client{}, err
	}
	email, err := s.normalizeEmail(req.Email)
	if err != nil {
		return domain.Client{}, err
	}

	now := time.Now().UTC()
	client := domain.Client{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Phone:     optional(req.Phone),
		Address:   optional(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	s.log.Info("client created", zap.String("client_id", client.ID.String()))
	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	filter := domain.ListClientFilter{
		Name:  strings.ToLower(strings.TrimSpace(req.Name)),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListClientResponse{}, err
	}
	items, info := pagination.Trim(items, page.Size(), func(c *domain.Client) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.Int64(), CreatedAt: c.CreatedAt}
	})

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item != nil {
			clients = append(clients, *item)
		}
	}
	return domain.ListClientResponse{PageInfo: info, Clients: clients}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	clientID, err := parseID(id)
	if err != nil {
		return domain.Client{}, err
	}
	return s.get(ctx, clientID)
}

func (s *Service) Update(ctx context.Context, req domain.UpdateClientRequest) (domain.Client, error) {
	clientID, err := parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}
	client, err := s.get(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}

	if req.Name != nil {
		if client.Name, err = s.normalizeName(*req.Name); err != nil {
			return domain.Client{}, err
		}
	}
	if req.Email != nil {
		if client.Email, err = s.normalizeEmail(*req.Email); err != nil {
			return domain.Client{}, err
		}
	}
	if req.Phone != nil {
		client.Phone = optional(*req.Phone)
	}
	if req.Address != nil {
		client.Address = optional(*req.Address)
	}
	client.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

// Delete removes a client that no invoice refers to.
func (s *Service) Delete(ctx context.Context, id string) error {
	clientID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.repo.FindByID(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return domain.ErrNotFound
		}
		count, err := s.repo.CountInvoices(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrClientHasInvoices
		}
		return s.repo.Delete(ctx, tx, clientID)
	})
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}

func (s *Service) get(ctx context.Context, id snowflake.ID) (domain.Client, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) < minNameLength {
		return "", domain.ErrInvalidName
	}
	return name, nil
}

func (s *Service) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
