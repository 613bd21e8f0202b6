// Package ums defines the record types shared by every stage of a persona build:
// modules, personas, module sources, registry entries, conflict strategies,
// validation results, the build report and the typed error taxonomy.
//
// Records are created by the loader and are treated as read-only afterwards.
package ums
