// Command devtoken prints an access token for local testing of the API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hotel-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()
	user := flag.Uint64("user", 1, "user id placed in the sub claim")
	role := flag.String("role", utils.RoleCustomer, "CUSTOMER or OWNER")
	ttl := flag.Int("ttl", 60, "lifetime in minutes")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to $JWT_SECRET)")
	flag.Parse()

	if *secret == "" {
		log.Fatal("devtoken: no secret; set JWT_SECRET or pass -secret")
	}
	tok, err := utils.NewAccessToken(*secret, *user, *role, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok.Token)
}
