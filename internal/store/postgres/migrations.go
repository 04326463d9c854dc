package postgres

const schema = `
CREATE TABLE IF NOT EXISTS ledger_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_ledger_documents_data ON ledger_documents USING GIN (data);
CREATE INDEX IF NOT EXISTS idx_ledger_fees_status_due ON ledger_documents ((data->>'status'), (data->>'dueDate')) WHERE collection = 'fees';
CREATE INDEX IF NOT EXISTS idx_ledger_attendance_class_date ON ledger_documents ((data->>'classId'), (data->>'date')) WHERE collection = 'attendance';
CREATE INDEX IF NOT EXISTS idx_ledger_attendance_student_date ON ledger_documents ((data->>'studentId'), (data->>'date')) WHERE collection = 'attendance';
`
