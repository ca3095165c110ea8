package main

import (
	"fmt"

	"go2tv.app/castgrid/collection"
)

const catalogPageSize = 6

// archive is the paged part of the sample library.
var archive = []collection.Item{
	collection.Movie{Name: "Night of the Living Dead", Year: 1968},
	collection.Movie{Name: "His Girl Friday", Year: 1940},
	collection.Movie{Name: "Charade", Year: 1963},
	collection.Movie{Name: "The General", Year: 1926},
	collection.Show{Name: "The Beverly Hillbillies", Seasons: 9},
	collection.Show{Name: "The Lucy Show", Seasons: 6},
	collection.Movie{Name: "Nosferatu", Year: 1922},
	collection.Movie{Name: "Metropolis", Year: 1927},
	collection.Movie{Name: "Detour", Year: 1945},
	collection.Movie{Name: "The Little Shop of Horrors", Year: 1960},
	collection.Show{Name: "The Cisco Kid", Seasons: 6},
	collection.Movie{Name: "Carnival of Souls", Year: 1962},
	collection.Movie{Name: "D.O.A.", Year: 1949},
	collection.Movie{Name: "Plan 9 from Outer Space", Year: 1957},
}

// catalog is the sample library shown by the grid views. The archive
// section holds its first page, catalogPage serves the rest.
func catalog() *collection.Source {
	first, hasNext, _ := catalogPage(1)
	src := collection.NewSource(
		[]collection.Item{
			collection.Person{Name: "Cary Grant"},
			collection.Person{Name: "Audrey Hepburn"},
			collection.Person{Name: "Buster Keaton"},
			collection.Download{Name: "Charade", Progress: 0.4},
		},
		first,
	)
	src.HasNextPage = hasNext
	return src
}

// catalogPage returns a 1-based page of the archive.
func catalogPage(page int) ([]collection.Item, bool, error) {
	start := (page - 1) * catalogPageSize
	if page < 1 || start >= len(archive) {
		return nil, false, fmt.Errorf("catalog page %d out of range", page)
	}

	end := min(start+catalogPageSize, len(archive))
	return append([]collection.Item(nil), archive[start:end]...), end < len(archive), nil
}
