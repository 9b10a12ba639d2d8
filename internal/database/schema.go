package database

import (
    "context"
    "database/sql"
)

// schemaDDL holds the full schema as idempotent CREATE TABLE statements.
// The project ships no migration tool; EnsureSchema applies this at
// startup against an InnoDB database.  Billing correctness depends on
// three constraints declared here: the owners.last_invoice_number
// counter column, the UNIQUE key on reservations.invoice_number and the
// UNIQUE keys on invoices.reservation_id / invoices.invoice_number.
var schemaDDL = []string{
    `CREATE TABLE IF NOT EXISTS users (
        id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        email         VARCHAR(255) NOT NULL,
        password_hash VARCHAR(255) NOT NULL,
        role          VARCHAR(16)  NOT NULL DEFAULT 'TENANT',
        is_active     TINYINT(1)   NOT NULL DEFAULT 1,
        created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_users_email (email)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS refresh_tokens (
        id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        user_id    BIGINT UNSIGNED NOT NULL,
        token_hash CHAR(64) NOT NULL,
        expires_at DATETIME NOT NULL,
        revoked_at DATETIME NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_refresh_tokens_hash (token_hash),
        CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id) REFERENCES users (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS owners (
        id                  BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        user_id             BIGINT UNSIGNED NOT NULL,
        name                VARCHAR(255) NOT NULL,
        invoice_series      VARCHAR(16) NULL,
        last_invoice_number BIGINT UNSIGNED NOT NULL DEFAULT 0,
        created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_owners_user (user_id),
        CONSTRAINT fk_owners_user FOREIGN KEY (user_id) REFERENCES users (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS properties (
        id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        owner_id     BIGINT UNSIGNED NOT NULL,
        name         VARCHAR(255) NOT NULL,
        address      VARCHAR(255) NOT NULL,
        city         VARCHAR(128) NOT NULL,
        nightly_rate DECIMAL(10,2) NOT NULL,
        is_active    TINYINT(1) NOT NULL DEFAULT 1,
        created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        KEY idx_properties_owner (owner_id),
        KEY idx_properties_city (city),
        CONSTRAINT fk_properties_owner FOREIGN KEY (owner_id) REFERENCES owners (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS reservations (
        id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        property_id    BIGINT UNSIGNED NOT NULL,
        tenant_id      BIGINT UNSIGNED NOT NULL,
        start_date     DATE NOT NULL,
        end_date       DATE NOT NULL,
        status         ENUM('PENDING','CONFIRMED','PAID','CANCELLED') NOT NULL DEFAULT 'PENDING',
        amount         DECIMAL(10,2) NOT NULL,
        payment_method VARCHAR(32) NULL,
        invoice_number VARCHAR(32) NULL,
        invoice_date   DATE NULL,
        created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_reservations_invoice_number (invoice_number),
        KEY idx_reservations_property (property_id),
        KEY idx_reservations_tenant (tenant_id),
        CONSTRAINT fk_reservations_property FOREIGN KEY (property_id) REFERENCES properties (id),
        CONSTRAINT fk_reservations_tenant FOREIGN KEY (tenant_id) REFERENCES users (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

    `CREATE TABLE IF NOT EXISTS invoices (
        id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
        reservation_id BIGINT UNSIGNED NOT NULL,
        invoice_number VARCHAR(32) NOT NULL,
        issue_date     DATETIME NOT NULL,
        paid_date      DATETIME NOT NULL,
        amount         DECIMAL(10,2) NOT NULL,
        payment_method VARCHAR(32) NOT NULL,
        created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (id),
        UNIQUE KEY uq_invoices_reservation (reservation_id),
        UNIQUE KEY uq_invoices_number (invoice_number),
        CONSTRAINT fk_invoices_reservation FOREIGN KEY (reservation_id) REFERENCES reservations (id)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema applies the DDL statements in order.  Statements are
// idempotent so repeated startups are safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    for _, stmt := range schemaDDL {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return err
        }
    }
    return nil
}
