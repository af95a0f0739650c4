package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// document is the flattened course representation pushed to the search
// index. Field names match what the query compiler filters and sorts on.
type document struct {
	ID                  int      `db:"id" json:"id"`
	Title               string   `db:"title" json:"title"`
	TitleSortable       string   `db:"title_sortable" json:"title_sortable"`
	Subject             string   `db:"subject" json:"subject"`
	CatalogNumber       string   `db:"catalog_number" json:"catalog_number"`
	AcademicGroup       string   `db:"academic_group" json:"academic_group"`
	Department          string   `db:"subject_academic_org_description" json:"subject_academic_org_description"`
	Component           string   `db:"component" json:"component"`
	Description         string   `db:"course_description_long" json:"course_description_long"`
	TermName            string   `db:"term_name" json:"term_name"`
	TermYear            int      `db:"term_year" json:"term_year"`
	AcademicYear        int      `db:"academic_year" json:"academic_year"`
	ClassSection        string   `db:"class_section" json:"class_section"`
	UnitsMaximum        float64  `db:"units_maximum" json:"units_maximum"`
	InstructorFirstName []string `db:"-" json:"first_name"`
	InstructorLastName  []string `db:"-" json:"last_name"`
}

func main() {
	var (
		dsn       string
		indexURL  string
		batchSize int
		timeout   time.Duration
	)

	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string")
	flag.StringVar(&indexURL, "index-url", envOr("SEARCH_INDEX_URL", "http://localhost:8983/search/courses"), "Search index base URL")
	flag.IntVar(&batchSize, "batch", 500, "Documents per index request")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("a Postgres DSN is required (-dsn or DATABASE_URL)")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	docs, err := loadCourses(db)
	if err != nil {
		log.Fatalf("failed to load courses: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	indexed := 0
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := pushBatch(client, indexURL, docs[start:end]); err != nil {
			log.Fatalf("failed to index batch at offset %d: %v", start, err)
		}
		indexed += end - start
		fmt.Printf("indexed %d/%d courses\n", indexed, len(docs))
	}

	fmt.Printf("reindex complete: %d courses\n", indexed)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadCourses(db *sqlx.DB) ([]document, error) {
	var docs []document
	err := db.Select(&docs, `
		SELECT id, title, title_sortable, subject, catalog_number,
		       academic_group, subject_academic_org_description, component,
		       course_description_long, term_name, term_year, academic_year,
		       class_section, units_maximum
		FROM courses
		ORDER BY id`)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}

	rows, err := db.Queryx(`
		SELECT course_id, first_name, last_name
		FROM course_instructors
		ORDER BY course_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var courseID int
		var first, last string
		if err := rows.Scan(&courseID, &first, &last); err != nil {
			return nil, err
		}
		if doc, ok := byID[courseID]; ok {
			doc.InstructorFirstName = append(doc.InstructorFirstName, first)
			doc.InstructorLastName = append(doc.InstructorLastName, last)
		}
	}
	return docs, rows.Err()
}

func pushBatch(client *http.Client, indexURL string, batch []document) error {
	payload, err := json.Marshal(map[string]interface{}{"documents": batch})
	if err != nil {
		return err
	}

	url := strings.TrimRight(indexURL, "/") + "/documents"
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("index responded with status %d", resp.StatusCode)
	}
	return nil
}
