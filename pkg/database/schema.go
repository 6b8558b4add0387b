package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables owned by the coordination service.
// The users and medicines tables belong to other services and are only
// created here when absent so a fresh development database works.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Info("Creating database schema")

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}

	statements := []string{
		createUsersTable,
		createMedicinesTable,
		createDoctorLocationsTable,
		createNotificationsTable,
		createMedicineAdherenceTable,
		createVitalsTable,
		createMessagesTable,
		createIndexes,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	db.logger.WithComponent("database").Info("Database schema ready")
	return nil
}

const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL CHECK (role IN ('patient', 'doctor')),
			specialization TEXT NOT NULL DEFAULT '',
			hospital TEXT NOT NULL DEFAULT ''
		);`

	createMedicinesTable = `
		CREATE TABLE IF NOT EXISTS medicines (
			id TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			dosage TEXT NOT NULL,
			instructions TEXT NOT NULL DEFAULT '',
			timings TEXT[] NOT NULL DEFAULT '{}',
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			reminder_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);`

	createDoctorLocationsTable = `
		CREATE TABLE IF NOT EXISTS doctor_locations (
			doctor_id TEXT PRIMARY KEY,
			longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
			latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			recorded_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createNotificationsTable = `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_id TEXT NOT NULL,
			message TEXT NOT NULL,
			category TEXT NOT NULL CHECK (category IN ('update', 'emergency', 'response', 'appointment')),
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createMedicineAdherenceTable = `
		CREATE TABLE IF NOT EXISTS medicine_adherence (
			medicine_id TEXT NOT NULL,
			date DATE NOT NULL,
			slot CHAR(5) NOT NULL,
			taken BOOLEAN NOT NULL DEFAULT FALSE,
			taken_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (medicine_id, date, slot)
		);`

	createVitalsTable = `
		CREATE TABLE IF NOT EXISTS vitals (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createMessagesTable = `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createIndexes = `
		CREATE INDEX IF NOT EXISTS idx_doctor_locations_coords ON doctor_locations(latitude, longitude) WHERE is_available;
		CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications(recipient_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_medicines_active ON medicines(active, reminder_enabled, start_date, end_date);
		CREATE INDEX IF NOT EXISTS idx_vitals_user_recorded ON vitals(user_id, recorded_at DESC);
		CREATE INDEX IF NOT EXISTS idx_messages_pair_sent ON messages(sender_id, receiver_id, sent_at);
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`
)
