package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	catIDs := seedCategories(db)
	productIDs := seedProducts(db, catIDs)
	seedCuratedBundles(db, productIDs)
	seedHomeSections(db, productIDs)
	seedPricingRules(db)
	seedCoupons(db)

	log.Println("Seeding completed successfully!")
}

func seedCategories(db *sql.DB) map[string]string {
	categories := []struct {
		Name string
		Slug string
	}{
		{"Abstract", "abstract"},
		{"Botanical", "botanical"},
		{"Typography", "typography"},
		{"Cityscapes", "cityscapes"},
		{"Vintage", "vintage"},
		{"Minimal", "minimal"},
	}

	fmt.Println("Seeding Categories...")
	ids := make(map[string]string)
	for i, c := range categories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug, sort_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name;
		`, c.Name, c.Slug, i)
		if err != nil {
			log.Printf("Failed to upsert category %s: %v", c.Name, err)
		}
		var id string
		if err := db.QueryRow("SELECT id FROM categories WHERE slug = $1", c.Slug).Scan(&id); err != nil {
			log.Printf("Failed to get ID for category %s: %v", c.Name, err)
			continue
		}
		ids[c.Slug] = id
	}
	return ids
}

func seedProducts(db *sql.DB, catIDs map[string]string) map[string]string {
	products := []struct {
		Title    string
		Slug     string
		Category string
		Tags     []string
		Image    string
	}{
		{"Terracotta Shapes", "terracotta-shapes", "abstract", []string{"warm", "earthy"}, "https://images.unsplash.com/photo-1549887534-1541e9326642?w=800"},
		{"Midnight Bloom", "midnight-bloom", "botanical", []string{"dark", "floral"}, "https://images.unsplash.com/photo-1524598171353-ce84a157ed05?w=800"},
		{"Eucalyptus Study", "eucalyptus-study", "botanical", []string{"green", "calm"}, "https://images.unsplash.com/photo-1463320898484-cdee8141c787?w=800"},
		{"Stay Curious", "stay-curious", "typography", []string{"quote", "bold"}, "https://images.unsplash.com/photo-1493723843671-1d655e66ac1c?w=800"},
		{"Breathe", "breathe", "typography", []string{"quote", "minimal"}, "https://images.unsplash.com/photo-1506126613408-eca07ce68773?w=800"},
		{"Bombay Dawn", "bombay-dawn", "cityscapes", []string{"india", "sunrise"}, "https://images.unsplash.com/photo-1529253355930-ddbe423a2ac7?w=800"},
		{"Tokyo Neon", "tokyo-neon", "cityscapes", []string{"japan", "night"}, "https://images.unsplash.com/photo-1540959733332-eab4deabeeaf?w=800"},
		{"Riviera Poster 1962", "riviera-poster-1962", "vintage", []string{"travel", "retro"}, "https://images.unsplash.com/photo-1533929736458-ca588d08c8be?w=800"},
		{"Mono Arc", "mono-arc", "minimal", []string{"geometric", "mono"}, "https://images.unsplash.com/photo-1557672172-298e090bd0f1?w=800"},
		{"Golden Ratio", "golden-ratio", "minimal", []string{"geometric", "gold"}, "https://images.unsplash.com/photo-1550859492-d5da9d8e45f3?w=800"},
		{"Desert Lines", "desert-lines", "abstract", []string{"warm", "dunes"}, "https://images.unsplash.com/photo-1547234935-80c7145ec969?w=800"},
		{"Fern Shadow", "fern-shadow", "botanical", []string{"green", "shadow"}, "https://images.unsplash.com/photo-1502086223501-7ea6ecd79368?w=800"},
	}

	fmt.Println("Seeding Products...")
	ids := make(map[string]string)
	for i, p := range products {
		catID, ok := catIDs[p.Category]
		if !ok {
			log.Printf("Missing category ID for %s", p.Category)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO products (title, slug, description, image_url, category_id, tags, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title, image_url = EXCLUDED.image_url;
		`, p.Title, p.Slug, "Archival matte print, museum-grade 200gsm paper.", p.Image, catID, pq.Array(p.Tags), i)
		if err != nil {
			log.Printf("Failed to upsert product %s: %v", p.Slug, err)
			continue
		}
		var id string
		if err := db.QueryRow("SELECT id FROM products WHERE slug = $1", p.Slug).Scan(&id); err != nil {
			log.Printf("Failed to get ID for product %s: %v", p.Slug, err)
			continue
		}
		ids[p.Slug] = id
	}
	return ids
}

func seedCuratedBundles(db *sql.DB, productIDs map[string]string) {
	bundles := []struct {
		Title string
		Slug  string
		Desc  string
		Slugs []string
	}{
		{"Calm Corner Six", "calm-corner-six", "Six soft botanicals and minimals for a reading nook.",
			[]string{"eucalyptus-study", "fern-shadow", "mono-arc", "breathe", "midnight-bloom", "golden-ratio"}},
		{"City Lights Gallery", "city-lights-gallery", "A ten-poster wall of skylines and neon.",
			[]string{"bombay-dawn", "tokyo-neon", "riviera-poster-1962", "terracotta-shapes", "desert-lines",
				"stay-curious", "mono-arc", "golden-ratio", "midnight-bloom", "breathe"}},
	}

	fmt.Println("Seeding Curated Bundles...")
	for i, b := range bundles {
		ids := resolveIDs(b.Slugs, productIDs)
		if len(ids) != len(b.Slugs) {
			log.Printf("Skipping bundle %s: unresolved products", b.Slug)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO curated_bundles (title, slug, description, product_ids, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slug) DO UPDATE SET product_ids = EXCLUDED.product_ids;
		`, b.Title, b.Slug, b.Desc, pq.Array(ids), i)
		if err != nil {
			log.Printf("Failed to upsert bundle %s: %v", b.Slug, err)
		}
	}
}

func seedHomeSections(db *sql.DB, productIDs map[string]string) {
	sections := []struct {
		Title  string
		Layout string
		Slugs  []string
	}{
		{"New This Week", "hero", []string{"terracotta-shapes", "bombay-dawn", "stay-curious"}},
		{"Bestsellers", "grid", []string{"mono-arc", "eucalyptus-study", "tokyo-neon", "golden-ratio"}},
		{"Words To Live By", "strip", []string{"stay-curious", "breathe"}},
	}

	fmt.Println("Seeding Home Sections...")
	for i, s := range sections {
		ids := resolveIDs(s.Slugs, productIDs)
		if len(ids) == 0 {
			continue
		}
		_, err := db.Exec(`
			INSERT INTO home_sections (title, layout, product_ids, sort_order)
			VALUES ($1, $2, $3, $4);
		`, s.Title, s.Layout, pq.Array(ids), i)
		if err != nil {
			log.Printf("Failed to seed section %s: %v", s.Title, err)
		}
	}
}

func seedPricingRules(db *sql.DB) {
	fmt.Println("Seeding Pricing Rules...")
	_, err := db.Exec(`
		INSERT INTO pricing_rules (name, kind, value, target_type, min_order_value, sort_order)
		VALUES ('Gallery wall 5% off', 'percentage_discount', 5, 'order', 150000, 1);
	`)
	if err != nil {
		log.Printf("Failed to seed pricing rule: %v", err)
	}
}

func seedCoupons(db *sql.DB) {
	coupons := []struct {
		Code  string
		Kind  string
		Value int64
		Min   int64
		Limit sql.NullInt32
	}{
		{"WELCOME10", "percentage", 10, 0, sql.NullInt32{}},
		{"FRAMEDAY", "fixed_amount", 20000, 100000, sql.NullInt32{Int32: 500, Valid: true}},
	}

	fmt.Println("Seeding Coupons...")
	for _, c := range coupons {
		_, err := db.Exec(`
			INSERT INTO coupons (code, kind, value, min_order_value, usage_limit)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (code) DO UPDATE SET value = EXCLUDED.value;
		`, c.Code, c.Kind, c.Value, c.Min, c.Limit)
		if err != nil {
			log.Printf("Failed to upsert coupon %s: %v", c.Code, err)
		}
	}
}

func resolveIDs(slugs []string, ids map[string]string) []string {
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if id, ok := ids[slug]; ok {
			out = append(out, id)
		}
	}
	return out
}
