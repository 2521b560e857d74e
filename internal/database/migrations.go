package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(500),
		provider VARCHAR(50) NOT NULL,
		provider_id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(provider, provider_id)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_rooms (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		leader_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		workflow_state VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (workflow_state IN ('PENDING', 'SETUP', 'COMPLETED')),
		lifecycle VARCHAR(20) NOT NULL DEFAULT 'ACTIVE'
			CHECK (lifecycle IN ('ACTIVE', 'ARCHIVED')),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS team_room_members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_room_id UUID NOT NULL REFERENCES team_rooms(id) ON DELETE CASCADE,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(team_room_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS setups (
		team_room_id UUID PRIMARY KEY REFERENCES team_rooms(id) ON DELETE CASCADE,
		deadline TIMESTAMP WITH TIME ZONE NOT NULL,
		tool_completed BOOLEAN NOT NULL DEFAULT FALSE,
		rule_completed BOOLEAN NOT NULL DEFAULT FALSE,
		meeting_completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// One decision per member per subject. Bulk subjects use item_key = ''.
	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		subject VARCHAR(20) NOT NULL,
		team_room_id UUID NOT NULL REFERENCES team_rooms(id) ON DELETE CASCADE,
		member_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_key VARCHAR(64) NOT NULL DEFAULT '',
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(subject, team_room_id, member_id, item_key)
	)`,

	`CREATE TABLE IF NOT EXISTS tool_proposals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_room_id UUID NOT NULL REFERENCES team_rooms(id) ON DELETE CASCADE,
		category VARCHAR(50) NOT NULL,
		candidate VARCHAR(100) NOT NULL,
		proposer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		decision VARCHAR(20) NOT NULL DEFAULT 'PENDING'
			CHECK (decision IN ('PENDING', 'APPROVED', 'REJECTED')),
		decided_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Candidates are compared case-insensitively everywhere else, so uniqueness is too.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tool_proposals_candidate
		ON tool_proposals(team_room_id, category, lower(candidate))`,

	`CREATE TABLE IF NOT EXISTS rule_candidates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		team_room_id UUID NOT NULL REFERENCES team_rooms(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS confirmed_outcomes (
		team_room_id UUID NOT NULL REFERENCES team_rooms(id) ON DELETE CASCADE,
		subject VARCHAR(20) NOT NULL,
		payload JSONB NOT NULL,
		confirmed_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (team_room_id, subject)
	)`,

	`CREATE TABLE IF NOT EXISTS sweeper_leases (
		name VARCHAR(100) PRIMARY KEY,
		holder VARCHAR(255) NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_id ON refresh_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_room_members_team_room_id ON team_room_members(team_room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_team_room_members_user_id ON team_room_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_team_room_subject ON votes(team_room_id, subject)`,
	`CREATE INDEX IF NOT EXISTS idx_tool_proposals_team_room_id ON tool_proposals(team_room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rule_candidates_team_room_id ON rule_candidates(team_room_id)`,

	// Sweeper scan: expired setups that still have an open subject.
	`CREATE INDEX IF NOT EXISTS idx_setups_open_deadline ON setups(deadline)
		WHERE NOT (tool_completed AND rule_completed AND meeting_completed)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
