package postgresadapter

import "time"

// Effects stored per rule subject row.
const (
	effectAllow = "allow"
	effectDeny  = "deny"
)

// ruleEntryModel registers that a (channel, action) rule exists, even when
// both subject sets are still empty. AddPermission must create entries
// eagerly; evaluation treats a registered channel as known.
type ruleEntryModel struct {
	ID        uint   `gorm:"primaryKey"`
	Channel   string `gorm:"uniqueIndex:idx_rule_entry,size:128"`
	Action    string `gorm:"uniqueIndex:idx_rule_entry,size:128"`
	CreatedAt time.Time
}

func (ruleEntryModel) TableName() string { return "access_rule_entries" }

// ruleSubjectModel holds one subject of one rule's allow or deny set.
// The composite unique index gives set-union semantics via upsert-do-nothing.
type ruleSubjectModel struct {
	ID        uint   `gorm:"primaryKey"`
	Channel   string `gorm:"uniqueIndex:idx_rule_subject,size:128"`
	Action    string `gorm:"uniqueIndex:idx_rule_subject,size:128"`
	Effect    string `gorm:"uniqueIndex:idx_rule_subject,size:16"`
	Subject   string `gorm:"uniqueIndex:idx_rule_subject,size:256"`
	CreatedAt time.Time
}

func (ruleSubjectModel) TableName() string { return "access_rule_subjects" }

type groupMemberModel struct {
	ID        uint   `gorm:"primaryKey"`
	GroupName string `gorm:"uniqueIndex:idx_group_member,size:128;index"`
	MemberID  string `gorm:"uniqueIndex:idx_group_member,size:256"`
	CreatedAt time.Time
}

func (groupMemberModel) TableName() string { return "access_group_members" }

// exceptionModel preserves insertion order through Position.
type exceptionModel struct {
	ID        uint   `gorm:"primaryKey"`
	Action    string `gorm:"uniqueIndex;size:128"`
	Position  int
	CreatedAt time.Time
}

func (exceptionModel) TableName() string { return "access_exceptions" }

// settingModel stores the enforcement switch as a single keyed row.
type settingModel struct {
	Key       string `gorm:"primaryKey;size:64"`
	Enabled   bool
	UpdatedAt time.Time
}

func (settingModel) TableName() string { return "access_settings" }

const settingEnforcement = "enforcement"

type outboxModel struct {
	OutboxID    string `gorm:"primaryKey;size:64"`
	EventType   string `gorm:"size:128"`
	Payload     []byte
	Status      string `gorm:"size:16;index"`
	CreatedAt   time.Time
	PublishedAt *time.Time
}

func (outboxModel) TableName() string { return "access_outbox" }

type consumedEventModel struct {
	EventID     string `gorm:"primaryKey;size:64"`
	PayloadHash string `gorm:"size:64"`
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

func (consumedEventModel) TableName() string { return "access_consumed_events" }
