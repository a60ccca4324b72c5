package main

import (
	"flag"
	"log"

	"mealreview/internal/databases"
)

func main() {
	set := flag.String("path", databases.Reviews, "migration set to apply (auth or reviews)")
	dir := flag.String("dir", "./internal/databases", "directory holding the database files")
	flag.Parse()

	db, err := databases.OpenMigrated(*dir+"/"+*set+".db", *set)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	log.Println("Database migration complete for the:", *set, "path")
}

/*
MealReview is a school meal review service: NEIS meal menus, star ratings and written reviews per meal.
MealReview Copyright (C) 2025 MealReview contributors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
