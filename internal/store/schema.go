package store

import (
	"context"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column layout. Tables are declared the way ent's generated
// migrate package declares them and are created through ent's migration
// engine; queries go through ent's SQL builder.

const (
	tableCredentials   = "credentials"
	tableLessons       = "lessons"
	tableAttemptEvents = "attempt_events"
	tableRequestEvents = "request_events"
)

var (
	credentialsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "api_url", Type: field.TypeString, Unique: true},
		{Name: "token", Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Default: ""},
		{Name: "role", Type: field.TypeString, Default: "student"},
		{Name: "updated_at", Type: field.TypeTime},
	}
	credentialsTable = &schema.Table{
		Name:       tableCredentials,
		Columns:    credentialsColumns,
		PrimaryKey: []*schema.Column{credentialsColumns[0]},
	}

	lessonsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "owner", Type: field.TypeString, Default: ""},
		{Name: "topic", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "content", Type: field.TypeString, Size: 1 << 20, Default: ""},
		{Name: "quiz", Type: field.TypeString, Size: 1 << 20},
		{Name: "is_assignment", Type: field.TypeBool, Default: false},
		{Name: "score", Type: field.TypeInt, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	lessonsTable = &schema.Table{
		Name:       tableLessons,
		Columns:    lessonsColumns,
		PrimaryKey: []*schema.Column{lessonsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "lesson_owner_created_at", Columns: []*schema.Column{lessonsColumns[1], lessonsColumns[8]}},
		},
	}

	attemptEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "api_url", Type: field.TypeString, Default: ""},
		{Name: "student", Type: field.TypeString, Default: ""},
		{Name: "lesson_id", Type: field.TypeString},
		{Name: "topic", Type: field.TypeString, Default: ""},
		{Name: "score", Type: field.TypeInt},
		{Name: "total", Type: field.TypeInt},
	}
	attemptEventsTable = &schema.Table{
		Name:       tableAttemptEvents,
		Columns:    attemptEventsColumns,
		PrimaryKey: []*schema.Column{attemptEventsColumns[0]},
	}

	requestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "kind", Type: field.TypeString},
		{Name: "target", Type: field.TypeString},
		{Name: "model", Type: field.TypeString, Default: ""},
		{Name: "purpose", Type: field.TypeString, Default: ""},
		{Name: "request_id", Type: field.TypeString, Default: ""},
		{Name: "status", Type: field.TypeInt, Default: 0},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 1 << 20, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 1 << 20, Default: ""},
	}
	requestEventsTable = &schema.Table{
		Name:       tableRequestEvents,
		Columns:    requestEventsColumns,
		PrimaryKey: []*schema.Column{requestEventsColumns[0]},
	}

	tables = []*schema.Table{
		credentialsTable,
		lessonsTable,
		attemptEventsTable,
		requestEventsTable,
	}
)

// migrate creates or updates all tables.
func migrate(ctx context.Context, drv *entsql.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}

// sqlite is the builder for every query in this package.
func sqlite() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}
