package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	"gatekeeper/contexts/identity-access/access-control/ports"
	"gatekeeper/internal/shared/outbox"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository adapter for PostgreSQL. Mutations run inside transactions with
// the policy-changed outbox row so state and event stay consistent.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the access-control tables and seeds the default
// configuration when the rule table is empty.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&ruleEntryModel{},
		&ruleSubjectModel{},
		&groupMemberModel{},
		&exceptionModel{},
		&settingModel{},
		&outboxModel{},
		&consumedEventModel{},
	); err != nil {
		return err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&ruleEntryModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, channel := range []string{entities.ChannelDefault, "whatsapp"} {
			if err := upsertRuleEntry(tx, channel, entities.ActionAny, now); err != nil {
				return err
			}
			if err := upsertRuleSubject(tx, channel, entities.ActionAny, effectAllow, entities.SubjectAll, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResolveAccessView builds a consistent view inside one read transaction.
func (r *Repository) ResolveAccessView(ctx context.Context, channel string, action string) (entities.AccessView, error) {
	view := entities.AccessView{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []ruleEntryModel
		if err := tx.
			Where("channel = ? AND action IN ?", channel, []string{action, entities.ActionAny}).
			Find(&entries).Error; err != nil {
			return err
		}

		var channelCount int64
		if err := tx.Model(&ruleEntryModel{}).Where("channel = ?", channel).Count(&channelCount).Error; err != nil {
			return err
		}
		if channelCount == 0 {
			return nil
		}
		view.ChannelFound = true

		matched := ""
		for _, entry := range entries {
			if entry.Action == action {
				matched = action
				break
			}
		}
		if matched == "" {
			for _, entry := range entries {
				if entry.Action == entities.ActionAny {
					matched = entities.ActionAny
					break
				}
			}
		}
		if matched == "" {
			return nil
		}
		view.RuleFound = true
		view.MatchedAction = matched

		var subjects []ruleSubjectModel
		if err := tx.
			Where("channel = ? AND action = ?", channel, matched).
			Order("subject ASC").
			Find(&subjects).Error; err != nil {
			return err
		}
		rule := entities.Rule{Allow: []string{}, Deny: []string{}}
		names := make([]string, 0, len(subjects))
		for _, row := range subjects {
			switch row.Effect {
			case effectAllow:
				rule.Allow = append(rule.Allow, row.Subject)
			case effectDeny:
				rule.Deny = append(rule.Deny, row.Subject)
			}
			names = append(names, row.Subject)
		}
		view.Rule = rule

		view.Groups = make(map[string][]string)
		if len(names) == 0 {
			return nil
		}
		var members []groupMemberModel
		if err := tx.
			Where("group_name IN ?", names).
			Order("member_id ASC").
			Find(&members).Error; err != nil {
			return err
		}
		for _, member := range members {
			view.Groups[member.GroupName] = append(view.Groups[member.GroupName], member.MemberID)
		}
		return nil
	})
	if err != nil {
		return entities.AccessView{}, err
	}
	return view, nil
}

// LoadPolicy reads the full policy document inside one read transaction.
func (r *Repository) LoadPolicy(ctx context.Context) (entities.PolicyDocument, error) {
	doc := entities.PolicyDocument{
		Channels:   make(map[string]map[string]entities.Rule),
		Groups:     make(map[string][]string),
		Exceptions: []string{},
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []ruleEntryModel
		if err := tx.Find(&entries).Error; err != nil {
			return err
		}
		for _, entry := range entries {
			actions, ok := doc.Channels[entry.Channel]
			if !ok {
				actions = make(map[string]entities.Rule)
				doc.Channels[entry.Channel] = actions
			}
			actions[entry.Action] = entities.Rule{Allow: []string{}, Deny: []string{}}
		}

		var subjects []ruleSubjectModel
		if err := tx.Order("subject ASC").Find(&subjects).Error; err != nil {
			return err
		}
		for _, row := range subjects {
			actions, ok := doc.Channels[row.Channel]
			if !ok {
				actions = make(map[string]entities.Rule)
				doc.Channels[row.Channel] = actions
			}
			rule := actions[row.Action]
			if rule.Allow == nil {
				rule.Allow = []string{}
			}
			if rule.Deny == nil {
				rule.Deny = []string{}
			}
			switch row.Effect {
			case effectAllow:
				rule.Allow = append(rule.Allow, row.Subject)
			case effectDeny:
				rule.Deny = append(rule.Deny, row.Subject)
			}
			actions[row.Action] = rule
		}

		var members []groupMemberModel
		if err := tx.Order("member_id ASC").Find(&members).Error; err != nil {
			return err
		}
		for _, member := range members {
			doc.Groups[member.GroupName] = append(doc.Groups[member.GroupName], member.MemberID)
		}

		var exceptions []exceptionModel
		if err := tx.Order("position ASC").Find(&exceptions).Error; err != nil {
			return err
		}
		for _, row := range exceptions {
			doc.Exceptions = append(doc.Exceptions, row.Action)
		}

		enforced, err := loadEnforced(tx)
		if err != nil {
			return err
		}
		doc.Enforced = enforced
		return nil
	})
	if err != nil {
		return entities.PolicyDocument{}, err
	}
	return doc, nil
}

func (r *Repository) ListExceptions(ctx context.Context) ([]string, error) {
	var rows []exceptionModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Action)
	}
	return items, nil
}

func (r *Repository) AddPermission(ctx context.Context, input ports.AddPermissionInput) (ports.RuleResult, error) {
	result := ports.RuleResult{Channel: input.Channel, Action: input.Action}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := input.OccurredAt.UTC()
		if err := upsertRuleEntry(tx, input.Channel, input.Action, now); err != nil {
			return err
		}
		for _, subject := range input.Allow {
			if err := upsertRuleSubject(tx, input.Channel, input.Action, effectAllow, subject, now); err != nil {
				return err
			}
		}
		for _, subject := range input.Deny {
			if err := upsertRuleSubject(tx, input.Channel, input.Action, effectDeny, subject, now); err != nil {
				return err
			}
		}

		var subjects []ruleSubjectModel
		if err := tx.
			Where("channel = ? AND action = ?", input.Channel, input.Action).
			Order("subject ASC").
			Find(&subjects).Error; err != nil {
			return err
		}
		result.Allow = []string{}
		result.Deny = []string{}
		for _, row := range subjects {
			switch row.Effect {
			case effectAllow:
				result.Allow = append(result.Allow, row.Subject)
			case effectDeny:
				result.Deny = append(result.Deny, row.Subject)
			}
		}

		return appendOutbox(tx, input.OutboxID, policyChangedEnvelope(input.OutboxID, now, policyChangedPayload{
			Kind:    "permission_added",
			Channel: input.Channel,
			Action:  input.Action,
		}))
	})
	if err != nil {
		return ports.RuleResult{}, err
	}
	return result, nil
}

func (r *Repository) ReplaceGroup(ctx context.Context, input ports.ReplaceGroupInput) (ports.GroupResult, error) {
	result := ports.GroupResult{GroupName: input.GroupName}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := input.OccurredAt.UTC()
		if err := tx.
			Where("group_name = ?", input.GroupName).
			Delete(&groupMemberModel{}).Error; err != nil {
			return err
		}
		for _, member := range input.Members {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&groupMemberModel{
				GroupName: input.GroupName,
				MemberID:  member,
				CreatedAt: now,
			}).Error; err != nil {
				return err
			}
		}

		var members []groupMemberModel
		if err := tx.
			Where("group_name = ?", input.GroupName).
			Order("member_id ASC").
			Find(&members).Error; err != nil {
			return err
		}
		result.Members = make([]string, 0, len(members))
		for _, member := range members {
			result.Members = append(result.Members, member.MemberID)
		}

		return appendOutbox(tx, input.OutboxID, policyChangedEnvelope(input.OutboxID, now, policyChangedPayload{
			Kind:  "group_replaced",
			Group: input.GroupName,
		}))
	})
	if err != nil {
		return ports.GroupResult{}, err
	}
	return result, nil
}

func (r *Repository) AddException(ctx context.Context, input ports.AddExceptionInput) (ports.ExceptionResult, error) {
	result := ports.ExceptionResult{Action: input.Action}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := input.OccurredAt.UTC()

		var existing int64
		if err := tx.Model(&exceptionModel{}).Where("action = ?", input.Action).Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			var maxPosition int
			row := tx.Model(&exceptionModel{}).Select("COALESCE(MAX(position), 0)").Row()
			if err := row.Scan(&maxPosition); err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&exceptionModel{
				Action:    input.Action,
				Position:  maxPosition + 1,
				CreatedAt: now,
			}).Error; err != nil {
				return err
			}
			result.Added = true
			if err := appendOutbox(tx, input.OutboxID, policyChangedEnvelope(input.OutboxID, now, policyChangedPayload{
				Kind:   "exception_added",
				Action: input.Action,
			})); err != nil {
				return err
			}
		}

		var rows []exceptionModel
		if err := tx.Order("position ASC").Find(&rows).Error; err != nil {
			return err
		}
		result.Exceptions = make([]string, 0, len(rows))
		for _, item := range rows {
			result.Exceptions = append(result.Exceptions, item.Action)
		}
		return nil
	})
	if err != nil {
		return ports.ExceptionResult{}, err
	}
	return result, nil
}

// Enforced defaults to true when no settings row exists yet.
func (r *Repository) Enforced(ctx context.Context) (bool, error) {
	return loadEnforced(r.db.WithContext(ctx))
}

func (r *Repository) SetEnforced(ctx context.Context, enabled bool) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(&settingModel{
		Key:       settingEnforcement,
		Enabled:   enabled,
		UpdatedAt: time.Now().UTC(),
	}).Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	value := publishedAt.UTC()
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": &value,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("outbox record not found")
	}
	return nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	var existing consumedEventModel
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&existing).Error
	if err == nil {
		if existing.PayloadHash != payloadHash {
			return false, errors.New("event payload hash mismatch")
		}
		return true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return false, r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&consumedEventModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}).Error
}

func upsertRuleEntry(tx *gorm.DB, channel string, action string, now time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ruleEntryModel{
		Channel:   channel,
		Action:    action,
		CreatedAt: now,
	}).Error
}

func upsertRuleSubject(tx *gorm.DB, channel string, action string, effect string, subject string, now time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ruleSubjectModel{
		Channel:   channel,
		Action:    action,
		Effect:    effect,
		Subject:   subject,
		CreatedAt: now,
	}).Error
}

func loadEnforced(tx *gorm.DB) (bool, error) {
	var setting settingModel
	err := tx.Where("key = ?", settingEnforcement).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return setting.Enabled, nil
}

func appendOutbox(tx *gorm.DB, outboxID string, payload []byte) error {
	if outboxID == "" {
		return nil
	}
	return tx.Create(&outboxModel{
		OutboxID:  outboxID,
		EventType: "access.policy_changed",
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: time.Now().UTC(),
	}).Error
}
